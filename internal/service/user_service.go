package service

import (
	"context"
	"errors"
	"strings"

	"go-distributor-ledger/internal/apperr"
	"go-distributor-ledger/internal/model"
	"go-distributor-ledger/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var ErrPhoneExists = errors.New("phone already registered")

type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Phone    string `json:"phone" validate:"required,phone"`
	Password string `json:"password" validate:"required,min=6"`
}

type UserService interface {
	CreateDistributor(ctx context.Context, actor Actor, req CreateUserRequest) (*model.UserResponse, error)
	CreateEmployee(ctx context.Context, actor Actor, req CreateUserRequest) (*model.UserResponse, error)
	ListEmployees(ctx context.Context, actor Actor) ([]model.UserResponse, error)
	ListDistributors(ctx context.Context) ([]model.UserResponse, error)
	SeedAdmin(ctx context.Context, phone, password string) error
}

type userService struct {
	users repository.UserRepository
	log   *logrus.Logger
}

func NewUserService(users repository.UserRepository, log *logrus.Logger) UserService {
	return &userService{users: users, log: log}
}

func (s *userService) create(ctx context.Context, createdBy string, role model.Role, distributorID *uuid.UUID, req CreateUserRequest) (*model.UserResponse, error) {
	if err := validate(&req); err != nil {
		return nil, err
	}
	phone := strings.TrimSpace(req.Phone)
	if existing, err := s.users.FindByPhone(ctx, phone); err == nil && existing != nil {
		return nil, apperr.Conflict(ErrPhoneExists, "Phone %s is already registered", phone)
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user := &model.User{
		Name:          strings.TrimSpace(req.Name),
		Phone:         phone,
		Role:          role,
		DistributorID: distributorID,
		IsActive:      true,
	}
	user.CreatedBy = createdBy
	user.UpdatedBy = createdBy
	if err := user.SetPassword(req.Password); err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	resp := user.ToResponse()
	return &resp, nil
}

// CreateDistributor registers a new tenant. Only the platform admin may call it.
func (s *userService) CreateDistributor(ctx context.Context, actor Actor, req CreateUserRequest) (*model.UserResponse, error) {
	if actor.Role != model.RoleAdmin {
		return nil, apperr.Forbidden(ErrForbidden, "only the platform admin can create distributors")
	}
	return s.create(ctx, actor.audit(), model.RoleDistributor, nil, req)
}

func (s *userService) CreateEmployee(ctx context.Context, actor Actor, req CreateUserRequest) (*model.UserResponse, error) {
	if actor.Role != model.RoleDistributor {
		return nil, apperr.Forbidden(ErrForbidden, "only distributors can add employees")
	}
	distributorID := actor.DistributorID
	return s.create(ctx, actor.audit(), model.RoleEmployee, &distributorID, req)
}

func (s *userService) ListEmployees(ctx context.Context, actor Actor) ([]model.UserResponse, error) {
	if err := requireDistributor(actor); err != nil {
		return nil, err
	}
	users, err := s.users.FindEmployees(ctx, actor.DistributorID)
	if err != nil {
		return nil, err
	}
	return responses(users), nil
}

func (s *userService) ListDistributors(ctx context.Context) ([]model.UserResponse, error) {
	users, err := s.users.FindByRole(ctx, model.RoleDistributor)
	if err != nil {
		return nil, err
	}
	return responses(users), nil
}

// SeedAdmin creates the platform admin on first start. It is a no-op once any admin exists.
func (s *userService) SeedAdmin(ctx context.Context, phone, password string) error {
	admins, err := s.users.FindByRole(ctx, model.RoleAdmin)
	if err != nil {
		return err
	}
	if len(admins) > 0 {
		return nil
	}
	if _, err := s.create(ctx, "system", model.RoleAdmin, nil, CreateUserRequest{
		Name:     "Platform Administrator",
		Phone:    phone,
		Password: password,
	}); err != nil {
		return err
	}
	s.log.WithField("phone", phone).Info("admin user created")
	return nil
}

func responses(users []model.User) []model.UserResponse {
	out := make([]model.UserResponse, len(users))
	for i := range users {
		out[i] = users[i].ToResponse()
	}
	return out
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go-distributor-ledger/internal/apperr"
	"go-distributor-ledger/internal/model"
	"go-distributor-ledger/internal/repository"
	"go-distributor-ledger/internal/ws"
	"go-distributor-ledger/pkg/jwt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidCredentials = errors.New("invalid phone or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrSessionReplaced    = errors.New("session expired (logged in on another device)")
)

type AuthService interface {
	Login(ctx context.Context, phone, password string) (*LoginResponse, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error
	ValidateToken(ctx context.Context, tokenString string) (*jwt.Claims, error)
	Heartbeat(ctx context.Context, actor Actor) error
}

type LoginResponse struct {
	Token      string             `json:"token"`
	User       model.UserResponse `json:"user"`
	Privileges []string           `json:"privileges"`
}

type authService struct {
	users repository.UserRepository
	hub   *ws.Hub
	log   *logrus.Logger
}

func NewAuthService(users repository.UserRepository, hub *ws.Hub, log *logrus.Logger) AuthService {
	return &authService{users: users, hub: hub, log: log}
}

// Login issues a token and rotates the token version, so any earlier session of the
// same user stops validating.
func (s *authService) Login(ctx context.Context, phone, password string) (*LoginResponse, error) {
	user, err := s.users.FindByPhone(ctx, strings.TrimSpace(phone))
	if err != nil {
		return nil, apperr.Unauthorized(ErrInvalidCredentials, "")
	}
	if !user.IsActive {
		return nil, apperr.Unauthorized(ErrUserInactive, "")
	}
	if !user.CheckPassword(password) {
		return nil, apperr.Unauthorized(ErrInvalidCredentials, "")
	}

	now := time.Now()
	user.TokenVersion = uuid.New().String()
	user.LastSeenAt = &now
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	var distributorID *uuid.UUID
	if id := user.ActingDistributorID(); id != uuid.Nil {
		distributorID = &id
	}
	privileges := model.PrivilegesFor(user.Role)
	token, err := jwt.GenerateToken(user.ID, user.Name, string(user.Role), distributorID, privileges, user.TokenVersion)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("user logged in")
	return &LoginResponse{Token: token, User: user.ToResponse(), Privileges: privileges}, nil
}

// ChangePassword also rotates the token version, signing out every session.
func (s *authService) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	if len(newPassword) < 6 {
		return apperr.Validation(ErrValidation, "New password must be at least 6 characters")
	}
	user, err := s.users.FindByID(ctx, nil, userID)
	if err != nil {
		return notFound(err, ErrUserNotFound, "User not found")
	}
	if !user.CheckPassword(oldPassword) {
		return apperr.Validation(ErrWrongPassword, "Current password is incorrect")
	}
	if err := user.SetPassword(newPassword); err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, user.Password); err != nil {
		return err
	}
	return s.users.UpdateTokenVersion(ctx, user.ID, uuid.New().String())
}

// ValidateToken checks the signature and that the token belongs to the user's
// current session.
func (s *authService) ValidateToken(ctx context.Context, tokenString string) (*jwt.Claims, error) {
	claims, err := jwt.ValidateToken(tokenString)
	if err != nil {
		return nil, apperr.Unauthorized(err, "Invalid or expired token")
	}
	user, err := s.users.FindByID(ctx, nil, claims.UserID)
	if err != nil {
		return nil, apperr.Unauthorized(ErrUserNotFound, "User not found")
	}
	if !user.IsActive {
		return nil, apperr.Unauthorized(ErrUserInactive, "")
	}
	if user.TokenVersion != claims.TokenVersion {
		return nil, apperr.Unauthorized(ErrSessionReplaced, "")
	}
	return claims, nil
}

// Heartbeat stamps last-seen and tells the distributor's dashboards the user is online.
func (s *authService) Heartbeat(ctx context.Context, actor Actor) error {
	if err := s.users.UpdateLastSeen(ctx, actor.UserID); err != nil {
		return err
	}
	if s.hub == nil || actor.DistributorID == uuid.Nil {
		return nil
	}
	msg, err := json.Marshal(map[string]interface{}{
		"type":         "user_status_update",
		"user_id":      actor.UserID.String(),
		"status":       "online",
		"last_seen_at": time.Now(),
	})
	if err != nil {
		return err
	}
	s.hub.SendToUsers([]string{actor.DistributorID.String()}, msg)
	return nil
}

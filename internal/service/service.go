package service

import (
	"context"
	"errors"
	"time"

	"go-distributor-ledger/internal/apperr"
	"go-distributor-ledger/internal/model"
	"go-distributor-ledger/internal/repository"
	"go-distributor-ledger/pkg/validator"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("go-distributor-ledger/service")

var (
	ErrDistributorNotFound = errors.New("distributor not found")
	ErrShopNotFound        = errors.New("shop not found")
	ErrProductNotFound     = errors.New("product not found")
	ErrOrderNotFound       = errors.New("order not found")
	ErrForbidden           = errors.New("access denied")
	ErrValidation          = errors.New("validation failed")
)

// Actor is the authenticated caller as resolved by the auth middleware.
type Actor struct {
	UserID        uuid.UUID
	DistributorID uuid.UUID
	Role          model.Role
}

func (a Actor) audit() string { return a.UserID.String() }

// Clock is injected so period boundaries are deterministic under test.
type Clock func() time.Time

func SystemClock() time.Time { return time.Now().UTC() }

// validate runs struct tags and reports the first failure as a validation error.
func validate(req any) error {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		first := errs[0]
		return apperr.Validation(ErrValidation, "Validation failed: field '%s' failed on tag '%s'", first.FailedField, first.Tag)
	}
	return nil
}

// notFound converts gorm's missing-row error into a typed not-found error.
func notFound(err error, sentinel error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(sentinel, format, args...)
	}
	return err
}

// finish records err on the span and normalises database lock failures.
func finish(span trace.Span, err error) error {
	err = apperr.FromDB(err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	return err
}

func requireDistributor(a Actor) error {
	if a.DistributorID == uuid.Nil {
		return apperr.Forbidden(ErrForbidden, "this operation requires a distributor account")
	}
	return nil
}

// resolveActing loads the distributor the actor works for and the acting user.
// For a distributor acting on its own account both are the same row.
func resolveActing(ctx context.Context, tx *gorm.DB, repos *repository.Repositories, actor Actor) (*model.User, *model.User, error) {
	distributor, err := repos.Users.FindByID(ctx, tx, actor.DistributorID)
	if err != nil {
		return nil, nil, notFound(err, ErrDistributorNotFound, "Distributor not found")
	}
	if distributor.Role != model.RoleDistributor {
		return nil, nil, apperr.NotFound(ErrDistributorNotFound, "Distributor not found")
	}
	if actor.UserID == distributor.ID {
		return distributor, distributor, nil
	}
	acting, err := repos.Users.FindByID(ctx, tx, actor.UserID)
	if err != nil {
		return nil, nil, notFound(err, ErrDistributorNotFound, "Acting user not found")
	}
	if acting.ActingDistributorID() != distributor.ID {
		return nil, nil, apperr.Forbidden(ErrForbidden, "user does not work for this distributor")
	}
	return distributor, acting, nil
}

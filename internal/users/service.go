package users

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/rentalz-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
)

// Service serves the signed-in user's own profile.
type Service interface {
	Me(ctx context.Context, userID uuid.UUID) (*Profile, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*Profile, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "users repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Me(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	user, err := s.repo.ByID(ctx, userID)
	if err != nil {
		return nil, lookupError(err)
	}
	return ProfileOf(user), nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*Profile, error) {
	cols, err := input.columns()
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateColumns(ctx, userID, cols); err != nil {
		return nil, lookupError(err)
	}
	return s.Me(ctx, userID)
}

func (in UpdateProfileInput) columns() (map[string]any, error) {
	cols := map[string]any{}
	for column, value := range map[string]*string{"first_name": in.FirstName, "last_name": in.LastName} {
		if value == nil {
			continue
		}
		name := strings.TrimSpace(*value)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, column+" cannot be blank")
		}
		cols[column] = name
	}
	if in.Phone != nil {
		if phone := strings.TrimSpace(*in.Phone); phone != "" {
			cols["phone"] = phone
		} else {
			cols["phone"] = nil
		}
	}
	return cols, nil
}

func lookupError(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
}

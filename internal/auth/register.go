package auth

import (
	"context"
	"strings"

	"github.com/angelmondragon/rentalz-backend/internal/users"
	"github.com/angelmondragon/rentalz-backend/pkg/config"
	"github.com/angelmondragon/rentalz-backend/pkg/db"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
	"github.com/angelmondragon/rentalz-backend/pkg/security"
	"gorm.io/gorm"
)

// RegisterService creates accounts. Public sign-up always yields a CUSTOMER;
// staff accounts are created by an admin.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*users.Profile, error)
	RegisterStaff(ctx context.Context, req StaffRegisterRequest) (*users.Profile, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	DB             txRunner
	PasswordConfig config.PasswordConfig
}

type registerService struct {
	db          txRunner
	hasher security.Hasher
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	return &registerService{
		db:     params.DB,
		hasher: security.NewHasher(params.PasswordConfig),
	}, nil
}

func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*users.Profile, error) {
	return s.create(ctx, req, enums.RoleCustomer)
}

func (s *registerService) RegisterStaff(ctx context.Context, req StaffRegisterRequest) (*users.Profile, error) {
	if req.Role != enums.RoleEmployee && req.Role != enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "role must be EMPLOYEE or ADMIN")
	}
	return s.create(ctx, req.RegisterRequest, req.Role)
}

func (s *registerService) create(ctx context.Context, req RegisterRequest, role enums.Role) (*users.Profile, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	firstName := strings.TrimSpace(req.FirstName)
	if firstName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "first_name is required")
	}
	lastName := strings.TrimSpace(req.LastName)
	if lastName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "last_name is required")
	}
	if err := security.CheckPolicy(req.Password); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "password does not meet policy")
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var created *users.Profile
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := users.NewRepository(tx)

		taken, err := userRepo.EmailTaken(ctx, email)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check user email")
		}
		if taken {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}

		user, err := userRepo.Create(ctx, users.NewUser{
			Email:        email,
			PasswordHash: passwordHash,
			FirstName:    firstName,
			LastName:     lastName,
			Phone:        req.Phone,
			Role:         role,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}

		created = users.ProfileOf(user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

package testimonials

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/rentalz-backend/pkg/auth"
	"github.com/angelmondragon/rentalz-backend/pkg/db"
	"github.com/angelmondragon/rentalz-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
	"github.com/angelmondragon/rentalz-backend/pkg/pagination"
)

const (
	minRating        = 1
	maxRating        = 5
	maxContentLength = 2000
)

type CreateInput struct {
	VehicleID *uuid.UUID `json:"vehicleId,omitempty"`
	Rating    int        `json:"rating" validate:"required,min=1,max=5"`
	Content   string     `json:"content" validate:"required,max=2000"`
}

type TestimonialDTO struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"userId"`
	VehicleID *uuid.UUID `json:"vehicleId,omitempty"`
	Rating    int        `json:"rating"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"createdAt"`
}

type TestimonialList struct {
	Items      []TestimonialDTO `json:"items"`
	NextCursor string           `json:"nextCursor,omitempty"`
}

type vehicleLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Vehicle, error)
}

// Service publishes customer reviews. Anyone may read them; only the author
// or an admin may remove one.
type Service interface {
	Create(ctx context.Context, principal auth.Principal, input CreateInput) (*TestimonialDTO, error)
	List(ctx context.Context, vehicleID *uuid.UUID, params pagination.Params) (*TestimonialList, error)
	Delete(ctx context.Context, principal auth.Principal, id uuid.UUID) error
}

type service struct {
	repo     *Repository
	vehicles vehicleLookup
}

func NewService(repo *Repository, vehicles vehicleLookup) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "testimonial repository required")
	}
	if vehicles == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "vehicle repository required")
	}
	return &service{repo: repo, vehicles: vehicles}, nil
}

func (s *service) Create(ctx context.Context, principal auth.Principal, input CreateInput) (*TestimonialDTO, error) {
	if principal.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	content := strings.TrimSpace(input.Content)
	fields := map[string]string{}
	if input.Rating < minRating || input.Rating > maxRating {
		fields["rating"] = "must be between 1 and 5"
	}
	if content == "" {
		fields["content"] = "required"
	} else if len(content) > maxContentLength {
		fields["content"] = "too long"
	}
	if len(fields) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid testimonial").WithDetails(fields)
	}
	if input.VehicleID != nil {
		if _, err := s.vehicles.FindByID(ctx, *input.VehicleID); err != nil {
			if db.IsNotFound(err) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vehicle not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vehicle")
		}
	}

	row := &models.Testimonial{
		UserID:    principal.UserID,
		VehicleID: input.VehicleID,
		Rating:    input.Rating,
		Content:   content,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create testimonial")
	}
	dto := toDTO(*row)
	return &dto, nil
}

func (s *service) List(ctx context.Context, vehicleID *uuid.UUID, params pagination.Params) (*TestimonialList, error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, vehicleID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list testimonials")
	}
	page, next := pagination.Trim(rows, params.Limit, func(t models.Testimonial) pagination.Cursor {
		return pagination.Cursor{CreatedAt: t.CreatedAt, ID: t.ID}
	})
	out := &TestimonialList{Items: make([]TestimonialDTO, 0, len(page)), NextCursor: next}
	for _, t := range page {
		out.Items = append(out.Items, toDTO(t))
	}
	return out, nil
}

func (s *service) Delete(ctx context.Context, principal auth.Principal, id uuid.UUID) error {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "testimonial not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load testimonial")
	}
	if !principal.CanAccess(row.UserID) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the author or an admin may delete a testimonial")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete testimonial")
	}
	return nil
}

func toDTO(t models.Testimonial) TestimonialDTO {
	return TestimonialDTO{
		ID:        t.ID,
		UserID:    t.UserID,
		VehicleID: t.VehicleID,
		Rating:    t.Rating,
		Content:   t.Content,
		CreatedAt: t.CreatedAt,
	}
}

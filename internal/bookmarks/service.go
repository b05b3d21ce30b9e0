package bookmarks

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/rentalz-backend/pkg/db"
	"github.com/angelmondragon/rentalz-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
	"github.com/angelmondragon/rentalz-backend/pkg/pagination"
)

const maxNoteLength = 500

// BookmarkDTO is the API projection of a bookmark.
type BookmarkDTO struct {
	ID        uuid.UUID `json:"id"`
	VehicleID uuid.UUID `json:"vehicleId"`
	Note      *string   `json:"note,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type BookmarkList struct {
	Items      []BookmarkDTO `json:"items"`
	NextCursor string        `json:"nextCursor,omitempty"`
}

type vehicleLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Vehicle, error)
}

// Service manages a user's bookmarked vehicles. Unlike favorites, a bookmark
// carries a private note.
type Service interface {
	Add(ctx context.Context, userID, vehicleID uuid.UUID, note *string) (*BookmarkDTO, error)
	UpdateNote(ctx context.Context, userID, vehicleID uuid.UUID, note *string) (*BookmarkDTO, error)
	Remove(ctx context.Context, userID, vehicleID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*BookmarkList, error)
}

type service struct {
	repo     *Repository
	vehicles vehicleLookup
}

func NewService(repo *Repository, vehicles vehicleLookup) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "bookmark repository required")
	}
	if vehicles == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "vehicle repository required")
	}
	return &service{repo: repo, vehicles: vehicles}, nil
}

func (s *service) Add(ctx context.Context, userID, vehicleID uuid.UUID, note *string) (*BookmarkDTO, error) {
	note, err := normalizeNote(note)
	if err != nil {
		return nil, err
	}
	if _, err := s.vehicles.FindByID(ctx, vehicleID); err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vehicle not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vehicle")
	}

	bookmark := &models.Bookmark{UserID: userID, VehicleID: vehicleID, Note: note}
	if err := s.repo.Create(ctx, bookmark); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "vehicle already bookmarked")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create bookmark")
	}
	dto := toDTO(*bookmark)
	return &dto, nil
}

func (s *service) UpdateNote(ctx context.Context, userID, vehicleID uuid.UUID, note *string) (*BookmarkDTO, error) {
	note, err := normalizeNote(note)
	if err != nil {
		return nil, err
	}
	bookmark, err := s.repo.Find(ctx, userID, vehicleID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bookmark not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bookmark")
	}
	if err := s.repo.UpdateNote(ctx, bookmark.ID, note); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update bookmark")
	}
	bookmark.Note = note
	dto := toDTO(*bookmark)
	return &dto, nil
}

func (s *service) Remove(ctx context.Context, userID, vehicleID uuid.UUID) error {
	n, err := s.repo.Delete(ctx, userID, vehicleID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete bookmark")
	}
	if n == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "bookmark not found")
	}
	return nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*BookmarkList, error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bookmarks")
	}
	page, next := pagination.Trim(rows, params.Limit, func(b models.Bookmark) pagination.Cursor {
		return pagination.Cursor{CreatedAt: b.CreatedAt, ID: b.ID}
	})
	out := &BookmarkList{Items: make([]BookmarkDTO, 0, len(page)), NextCursor: next}
	for _, b := range page {
		out.Items = append(out.Items, toDTO(b))
	}
	return out, nil
}

// normalizeNote trims the note; blank becomes nil.
func normalizeNote(note *string) (*string, error) {
	if note == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*note)
	if trimmed == "" {
		return nil, nil
	}
	if len(trimmed) > maxNoteLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "note is too long").
			WithDetails(map[string]any{"max": maxNoteLength})
	}
	return &trimmed, nil
}

func toDTO(b models.Bookmark) BookmarkDTO {
	return BookmarkDTO{ID: b.ID, VehicleID: b.VehicleID, Note: b.Note, CreatedAt: b.CreatedAt}
}

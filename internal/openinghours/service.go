package openinghours

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/rentalz-backend/pkg/db/models"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
)

const clockLayout = "15:04"

// OpeningHourDTO is one weekday of the counter schedule.
type OpeningHourDTO struct {
	DayOfWeek enums.DayOfWeek `json:"dayOfWeek"`
	OpensAt   string          `json:"opensAt"`
	ClosesAt  string          `json:"closesAt"`
	Closed    bool            `json:"closed"`
}

type UpsertInput struct {
	DayOfWeek enums.DayOfWeek `json:"dayOfWeek"`
	OpensAt   string          `json:"opensAt" validate:"omitempty,clock"`
	ClosesAt  string          `json:"closesAt" validate:"omitempty,clock"`
	Closed    bool            `json:"closed"`
}

type Service interface {
	List(ctx context.Context) ([]OpeningHourDTO, error)
	Upsert(ctx context.Context, input UpsertInput) (*OpeningHourDTO, error)
}

type service struct {
	db *gorm.DB
}

func NewService(conn *gorm.DB) (Service, error) {
	if conn == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database required")
	}
	return &service{db: conn}, nil
}

// List returns the configured days in Monday..Sunday order. Days without a
// row are omitted.
func (s *service) List(ctx context.Context) ([]OpeningHourDTO, error) {
	var rows []models.OpeningHour
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list opening hours")
	}
	byDay := make(map[enums.DayOfWeek]models.OpeningHour, len(rows))
	for _, row := range rows {
		byDay[row.DayOfWeek] = row
	}
	out := make([]OpeningHourDTO, 0, len(rows))
	for _, day := range enums.DaysOfWeek() {
		if row, ok := byDay[day]; ok {
			out = append(out, toDTO(row))
		}
	}
	return out, nil
}

func (s *service) Upsert(ctx context.Context, input UpsertInput) (*OpeningHourDTO, error) {
	if err := validate(input); err != nil {
		return nil, err
	}
	opensAt, closesAt := input.OpensAt, input.ClosesAt
	if input.Closed {
		opensAt, closesAt = "00:00", "00:00"
	}

	row := &models.OpeningHour{
		DayOfWeek: input.DayOfWeek,
		OpensAt:   opensAt,
		ClosesAt:  closesAt,
		Closed:    input.Closed,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "day_of_week"}},
		DoUpdates: clause.AssignmentColumns([]string{"opens_at", "closes_at", "closed", "updated_at"}),
	}).Create(row).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert opening hours")
	}

	var stored models.OpeningHour
	if err := s.db.WithContext(ctx).Where("day_of_week = ?", input.DayOfWeek).First(&stored).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload opening hours")
	}
	dto := toDTO(stored)
	return &dto, nil
}

func validate(input UpsertInput) error {
	if !input.DayOfWeek.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid day_of_week")
	}
	if input.Closed {
		return nil
	}
	opens, err := time.Parse(clockLayout, input.OpensAt)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "opens_at must be HH:MM")
	}
	closes, err := time.Parse(clockLayout, input.ClosesAt)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "closes_at must be HH:MM")
	}
	if !closes.After(opens) {
		return pkgerrors.New(pkgerrors.CodeValidation, "closes_at must be after opens_at")
	}
	return nil
}

func toDTO(row models.OpeningHour) OpeningHourDTO {
	return OpeningHourDTO{
		DayOfWeek: row.DayOfWeek,
		OpensAt:   row.OpensAt,
		ClosesAt:  row.ClosesAt,
		Closed:    row.Closed,
	}
}

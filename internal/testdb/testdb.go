// Package testdb opens throwaway sqlite databases migrated with every model.
package testdb

import (
	"testing"
	"time"

	"github.com/angelmondragon/rentalz-backend/pkg/db"
	"github.com/angelmondragon/rentalz-backend/pkg/db/models"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open returns a migrated in-memory database. The pool is capped at one
// connection so concurrent transactions queue behind each other the way row
// locks serialize them on Postgres; code holding a tx must only use that tx.
func Open(t testing.TB) (*gorm.DB, *db.Client) {
	t.Helper()
	dsn := "file:rentalz_" + uuid.NewString() + "?mode=memory&cache=shared&_busy_timeout=5000"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return conn, db.Wrap(conn)
}

// SeedUser inserts a user with the given role.
func SeedUser(t testing.TB, conn *gorm.DB, role enums.Role) *models.User {
	t.Helper()
	user := &models.User{
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "hash",
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
	}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// SeedVehicle inserts an AVAILABLE vehicle priced at 50.00 per day.
func SeedVehicle(t testing.TB, conn *gorm.DB) *models.Vehicle {
	t.Helper()
	vehicle := &models.Vehicle{
		Brand:        "Toyota",
		Model:        "Corolla",
		Year:         2022,
		LicensePlate: "PLATE-" + uuid.NewString()[:8],
		FuelType:     enums.FuelTypeGasoline,
		PricePerDay:  decimal.RequireFromString("50.00"),
		Status:       enums.VehicleStatusAvailable,
	}
	if err := conn.Create(vehicle).Error; err != nil {
		t.Fatalf("seed vehicle: %v", err)
	}
	return vehicle
}

// SeedReservation inserts a reservation directly, bypassing availability checks.
func SeedReservation(t testing.TB, conn *gorm.DB, userID, vehicleID uuid.UUID, start, end time.Time, status enums.ReservationStatus) *models.Reservation {
	t.Helper()
	reservation := &models.Reservation{
		UserID:    userID,
		VehicleID: vehicleID,
		StartDate: start.UTC(),
		EndDate:   end.UTC(),
		Status:    status,
	}
	if err := conn.Create(reservation).Error; err != nil {
		t.Fatalf("seed reservation: %v", err)
	}
	return reservation
}

// Date builds a UTC timestamp, failing the test on malformed input.
func Date(t testing.TB, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02T15:04", value)
	if err != nil {
		t.Fatalf("parse date %q: %v", value, err)
	}
	return parsed.UTC()
}

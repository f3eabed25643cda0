package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pwendlys/viaja-mais/internal/models"
)

type DriverRepository interface {
	GetByID(ctx context.Context, id string) (*models.Driver, error)
	ListAvailable(ctx context.Context) ([]*models.Driver, error)
	UpdateLocation(ctx context.Context, id string, lat, lng float64) error
	SetAvailability(ctx context.Context, id string, available bool) error
	SetVerificationStatus(ctx context.Context, id, status string) error
	RecordCompletedRide(ctx context.Context, id string) error
	RefreshRating(ctx context.Context, id string) error
	CountAvailable(ctx context.Context) (int, error)
	CountPendingVerification(ctx context.Context) (int, error)
}

type driverRepository struct {
	db *sqlx.DB
}

func NewDriverRepository(db *sqlx.DB) DriverRepository {
	return &driverRepository{db: db}
}

func (r *driverRepository) GetByID(ctx context.Context, id string) (*models.Driver, error) {
	var driver models.Driver
	query := `SELECT * FROM drivers WHERE id = $1`
	err := r.db.GetContext(ctx, &driver, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &driver, nil
}

// ListAvailable returns drivers flagged available with known coordinates.
func (r *driverRepository) ListAvailable(ctx context.Context) ([]*models.Driver, error) {
	var drivers []*models.Driver
	query := `
		SELECT * FROM drivers
		WHERE is_available = true
		AND current_lat IS NOT NULL AND current_lng IS NOT NULL
	`
	err := r.db.SelectContext(ctx, &drivers, query)
	return drivers, err
}

func (r *driverRepository) UpdateLocation(ctx context.Context, id string, lat, lng float64) error {
	now := time.Now()
	query := `UPDATE drivers SET current_lat = $1, current_lng = $2, last_location_at = $3, updated_at = $3 WHERE id = $4`
	_, err := r.db.ExecContext(ctx, query, lat, lng, now, id)
	return err
}

func (r *driverRepository) SetAvailability(ctx context.Context, id string, available bool) error {
	query := `UPDATE drivers SET is_available = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, available, time.Now(), id)
	return err
}

func (r *driverRepository) SetVerificationStatus(ctx context.Context, id, status string) error {
	query := `UPDATE drivers SET verification_status = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	return err
}

// RecordCompletedRide bumps the ride counter and frees the driver.
func (r *driverRepository) RecordCompletedRide(ctx context.Context, id string) error {
	query := `UPDATE drivers SET total_rides = total_rides + 1, is_available = true, updated_at = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, time.Now(), id)
	return err
}

// RefreshRating recomputes the driver's rating from rated rides.
func (r *driverRepository) RefreshRating(ctx context.Context, id string) error {
	query := `
		UPDATE drivers
		SET rating = COALESCE((SELECT AVG(driver_rating) FROM rides WHERE driver_id = $1 AND driver_rating IS NOT NULL), rating),
			updated_at = $2
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, time.Now())
	return err
}

func (r *driverRepository) CountAvailable(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM drivers WHERE is_available = true`)
	return n, err
}

func (r *driverRepository) CountPendingVerification(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM drivers WHERE verification_status = $1`, models.VerificationPending)
	return n, err
}

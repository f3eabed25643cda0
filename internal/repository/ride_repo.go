package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pwendlys/viaja-mais/internal/models"
)

type RideRepository interface {
	Create(ctx context.Context, ride *models.Ride) error
	GetByID(ctx context.Context, id string) (*models.Ride, error)
	ListByPatientID(ctx context.Context, patientID string, limit int) ([]*models.Ride, error)
	UpdateStatus(ctx context.Context, ride *models.Ride) error
	Accept(ctx context.Context, rideID, driverID string) (*models.Ride, error)
	Rate(ctx context.Context, rideID string, serviceRating, driverRating int) error
	GetActiveRideByPatientID(ctx context.Context, patientID string) (*models.Ride, error)
	GetActiveRideByDriverID(ctx context.Context, driverID string) (*models.Ride, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
	RevenueSince(ctx context.Context, since time.Time) (float64, error)
}

type rideRepository struct {
	db *sqlx.DB
}

func NewRideRepository(db *sqlx.DB) RideRepository {
	return &rideRepository{db: db}
}

func (r *rideRepository) Create(ctx context.Context, ride *models.Ride) error {
	if ride.ID == "" {
		ride.ID = uuid.New().String()
	}
	now := time.Now()
	ride.CreatedAt = now
	ride.UpdatedAt = now
	ride.Status = models.RideStatusRequested

	query := `
		INSERT INTO rides (id, patient_id, driver_id, origin_lat, origin_lng, origin_address,
			destination_lat, destination_lng, destination_address, status, vehicle_type, urgency,
			price, distance_km, duration_minutes, notes, medical_notes, appointment_type,
			scheduled_for, created_at, updated_at)
		VALUES (:id, :patient_id, :driver_id, :origin_lat, :origin_lng, :origin_address,
			:destination_lat, :destination_lng, :destination_address, :status, :vehicle_type, :urgency,
			:price, :distance_km, :duration_minutes, :notes, :medical_notes, :appointment_type,
			:scheduled_for, :created_at, :updated_at)
	`
	_, err := r.db.NamedExecContext(ctx, query, ride)
	return err
}

func (r *rideRepository) GetByID(ctx context.Context, id string) (*models.Ride, error) {
	var ride models.Ride
	query := `SELECT * FROM rides WHERE id = $1`
	err := r.db.GetContext(ctx, &ride, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ride, nil
}

func (r *rideRepository) ListByPatientID(ctx context.Context, patientID string, limit int) ([]*models.Ride, error) {
	if limit <= 0 {
		limit = 50
	}
	var rides []*models.Ride
	query := `SELECT * FROM rides WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2`
	err := r.db.SelectContext(ctx, &rides, query, patientID, limit)
	return rides, err
}

// UpdateStatus persists the status and lifecycle timestamps of a ride.
func (r *rideRepository) UpdateStatus(ctx context.Context, ride *models.Ride) error {
	ride.UpdatedAt = time.Now()
	query := `
		UPDATE rides
		SET status = :status, driver_id = :driver_id, accepted_at = :accepted_at, started_at = :started_at,
			completed_at = :completed_at, cancelled_at = :cancelled_at,
			cancellation_reason = :cancellation_reason, updated_at = :updated_at
		WHERE id = :id
	`
	_, err := r.db.NamedExecContext(ctx, query, ride)
	return err
}

// Accept assigns the driver inside a transaction holding the ride row lock,
// so two drivers accepting the same request cannot both win.
func (r *rideRepository) Accept(ctx context.Context, rideID, driverID string) (*models.Ride, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var ride models.Ride
	err = tx.GetContext(ctx, &ride, `SELECT * FROM rides WHERE id = $1 FOR UPDATE`, rideID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if ride.Status != models.RideStatusRequested {
		return &ride, nil
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx,
		`UPDATE rides SET driver_id = $1, status = $2, accepted_at = $3, updated_at = $3 WHERE id = $4`,
		driverID, models.RideStatusAccepted, now, rideID)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE drivers SET is_available = false, updated_at = $1 WHERE id = $2`, now, driverID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	ride.DriverID = &driverID
	ride.Status = models.RideStatusAccepted
	ride.AcceptedAt = &now
	ride.UpdatedAt = now
	return &ride, nil
}

func (r *rideRepository) Rate(ctx context.Context, rideID string, serviceRating, driverRating int) error {
	query := `UPDATE rides SET service_rating = $1, driver_rating = $2, updated_at = $3 WHERE id = $4`
	_, err := r.db.ExecContext(ctx, query, serviceRating, driverRating, time.Now(), rideID)
	return err
}

func (r *rideRepository) GetActiveRideByPatientID(ctx context.Context, patientID string) (*models.Ride, error) {
	var ride models.Ride
	query := `
		SELECT * FROM rides
		WHERE patient_id = $1 AND status NOT IN ($2, $3)
		ORDER BY created_at DESC
		LIMIT 1
	`
	err := r.db.GetContext(ctx, &ride, query, patientID, models.RideStatusCompleted, models.RideStatusCancelled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ride, nil
}

func (r *rideRepository) GetActiveRideByDriverID(ctx context.Context, driverID string) (*models.Ride, error) {
	var ride models.Ride
	query := `
		SELECT * FROM rides
		WHERE driver_id = $1 AND status NOT IN ($2, $3)
		ORDER BY created_at DESC
		LIMIT 1
	`
	err := r.db.GetContext(ctx, &ride, query, driverID, models.RideStatusCompleted, models.RideStatusCancelled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ride, nil
}

func (r *rideRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &rows, `SELECT status, COUNT(*) AS count FROM rides GROUP BY status`); err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *rideRepository) RevenueSince(ctx context.Context, since time.Time) (float64, error) {
	var total float64
	query := `SELECT COALESCE(SUM(price), 0) FROM rides WHERE status = $1 AND completed_at >= $2`
	err := r.db.GetContext(ctx, &total, query, models.RideStatusCompleted, since)
	return total, err
}

package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pwendlys/viaja-mais/internal/models"
)

type HistoryRepository interface {
	Append(ctx context.Context, ride *models.Ride) error
	ListByPatientID(ctx context.Context, patientID string, limit int) ([]*models.RideHistoryEntry, error)
}

type historyRepository struct {
	db *sqlx.DB
}

func NewHistoryRepository(db *sqlx.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Append(ctx context.Context, ride *models.Ride) error {
	query := `
		INSERT INTO ride_history (ride_id, patient_id, driver_id, status, price, distance_km, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		ride.ID, ride.PatientID, ride.DriverID, ride.Status, ride.Price, ride.DistanceKm, time.Now())
	return err
}

func (r *historyRepository) ListByPatientID(ctx context.Context, patientID string, limit int) ([]*models.RideHistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []*models.RideHistoryEntry
	query := `SELECT * FROM ride_history WHERE patient_id = $1 ORDER BY recorded_at DESC LIMIT $2`
	err := r.db.SelectContext(ctx, &entries, query, patientID, limit)
	return entries, err
}

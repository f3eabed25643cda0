package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// GeoRepository calls geographic procedures that live in the database.
type GeoRepository interface {
	CalculateDistance(ctx context.Context, lat1, lng1, lat2, lng2 float64) (float64, error)
}

type geoRepository struct {
	db *sqlx.DB
}

func NewGeoRepository(db *sqlx.DB) GeoRepository {
	return &geoRepository{db: db}
}

func (r *geoRepository) CalculateDistance(ctx context.Context, lat1, lng1, lat2, lng2 float64) (float64, error) {
	var km float64
	err := r.db.GetContext(ctx, &km, `SELECT calculate_distance($1, $2, $3, $4)`, lat1, lng1, lat2, lng2)
	return km, err
}

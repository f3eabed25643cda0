package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pwendlys/viaja-mais/internal/models"
)

type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	Update(ctx context.Context, profile *models.Profile) error
}

type profileRepository struct {
	db *sqlx.DB
}

func NewProfileRepository(db *sqlx.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	query := `SELECT * FROM profiles WHERE id = $1`
	err := r.db.GetContext(ctx, &profile, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) Update(ctx context.Context, profile *models.Profile) error {
	profile.UpdatedAt = time.Now()
	query := `
		UPDATE profiles
		SET full_name = $1, phone = $2, is_elderly = $3, has_disability = $4, updated_at = $5
		WHERE id = $6
	`
	_, err := r.db.ExecContext(ctx, query,
		profile.FullName, profile.Phone, profile.IsElderly, profile.HasDisability, profile.UpdatedAt, profile.ID)
	return err
}

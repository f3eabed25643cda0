package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pwendlys/viaja-mais/internal/models"
)

type PricingRepository interface {
	GetConfig(ctx context.Context, vehicleType string) (*models.PricingConfig, error)
	ListConfigs(ctx context.Context) ([]*models.PricingConfig, error)
	UpdateConfig(ctx context.Context, cfg *models.PricingConfig) error
	ListActiveRules(ctx context.Context, vehicleType string) ([]*models.PricingRule, error)
	ListRules(ctx context.Context) ([]*models.PricingRule, error)
	UpsertRule(ctx context.Context, rule *models.PricingRule) error
}

type pricingRepository struct {
	db *sqlx.DB
}

func NewPricingRepository(db *sqlx.DB) PricingRepository {
	return &pricingRepository{db: db}
}

// pricingRuleRow carries days_of_week as a Postgres integer array.
type pricingRuleRow struct {
	models.PricingRule
	Days pq.Int64Array `db:"days_of_week"`
}

func (row pricingRuleRow) toModel() *models.PricingRule {
	rule := row.PricingRule
	rule.DaysOfWeek = make([]int, len(row.Days))
	for i, d := range row.Days {
		rule.DaysOfWeek[i] = int(d)
	}
	return &rule
}

func (r *pricingRepository) GetConfig(ctx context.Context, vehicleType string) (*models.PricingConfig, error) {
	var cfg models.PricingConfig
	query := `SELECT * FROM pricing_config WHERE vehicle_type = $1 AND is_active = true`
	err := r.db.GetContext(ctx, &cfg, query, vehicleType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *pricingRepository) ListConfigs(ctx context.Context) ([]*models.PricingConfig, error) {
	var cfgs []*models.PricingConfig
	err := r.db.SelectContext(ctx, &cfgs, `SELECT * FROM pricing_config ORDER BY vehicle_type`)
	return cfgs, err
}

// UpdateConfig writes a new version of a vehicle type's rate triple.
func (r *pricingRepository) UpdateConfig(ctx context.Context, cfg *models.PricingConfig) error {
	cfg.UpdatedAt = time.Now()
	query := `
		INSERT INTO pricing_config (vehicle_type, base_fare, price_per_km, price_per_minute, is_active, version, updated_at)
		VALUES ($1, $2, $3, $4, $5, 1, $6)
		ON CONFLICT (vehicle_type) DO UPDATE
		SET base_fare = EXCLUDED.base_fare, price_per_km = EXCLUDED.price_per_km,
			price_per_minute = EXCLUDED.price_per_minute, is_active = EXCLUDED.is_active,
			version = pricing_config.version + 1, updated_at = EXCLUDED.updated_at
		RETURNING version
	`
	return r.db.QueryRowxContext(ctx, query,
		cfg.VehicleType, cfg.BaseFare, cfg.PricePerKm, cfg.PricePerMinute, cfg.IsActive, cfg.UpdatedAt,
	).Scan(&cfg.Version)
}

func (r *pricingRepository) ListActiveRules(ctx context.Context, vehicleType string) ([]*models.PricingRule, error) {
	query := `
		SELECT id, name, multiplier, vehicle_type, start_time, end_time, days_of_week, is_holiday, is_active
		FROM pricing_rules
		WHERE is_active = true AND (vehicle_type = $1 OR vehicle_type = $2)
		ORDER BY name
	`
	return r.selectRules(ctx, query, models.VehicleTypeAll, vehicleType)
}

func (r *pricingRepository) ListRules(ctx context.Context) ([]*models.PricingRule, error) {
	query := `
		SELECT id, name, multiplier, vehicle_type, start_time, end_time, days_of_week, is_holiday, is_active
		FROM pricing_rules
		ORDER BY name
	`
	return r.selectRules(ctx, query)
}

func (r *pricingRepository) selectRules(ctx context.Context, query string, args ...interface{}) ([]*models.PricingRule, error) {
	var rows []pricingRuleRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	rules := make([]*models.PricingRule, 0, len(rows))
	for _, row := range rows {
		rules = append(rules, row.toModel())
	}
	return rules, nil
}

func (r *pricingRepository) UpsertRule(ctx context.Context, rule *models.PricingRule) error {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	days := make(pq.Int64Array, len(rule.DaysOfWeek))
	for i, d := range rule.DaysOfWeek {
		days[i] = int64(d)
	}
	query := `
		INSERT INTO pricing_rules (id, name, multiplier, vehicle_type, start_time, end_time, days_of_week, is_holiday, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, multiplier = EXCLUDED.multiplier, vehicle_type = EXCLUDED.vehicle_type,
			start_time = EXCLUDED.start_time, end_time = EXCLUDED.end_time, days_of_week = EXCLUDED.days_of_week,
			is_holiday = EXCLUDED.is_holiday, is_active = EXCLUDED.is_active
	`
	_, err := r.db.ExecContext(ctx, query,
		rule.ID, rule.Name, rule.Multiplier, rule.VehicleType, rule.StartTime, rule.EndTime,
		days, rule.IsHoliday, rule.IsActive)
	return err
}

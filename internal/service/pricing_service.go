package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/pwendlys/viaja-mais/internal/errors"
	"github.com/pwendlys/viaja-mais/internal/models"
	"github.com/pwendlys/viaja-mais/internal/repository"
)

// Discounts are additive when a patient qualifies for both.
const (
	elderlyDiscount    = 0.15
	disabilityDiscount = 0.20
)

// Fixed-date national holidays, as MM-DD.
var nationalHolidays = map[string]bool{
	"01-01": true, // Confraternização Universal
	"04-21": true, // Tiradentes
	"05-01": true, // Dia do Trabalho
	"09-07": true, // Independência
	"10-12": true, // Nossa Senhora Aparecida
	"11-02": true, // Finados
	"11-15": true, // Proclamação da República
	"11-20": true, // Consciência Negra
	"12-25": true, // Natal
}

type PricingService interface {
	CalculatePrice(ctx context.Context, req *models.PriceRequest) (*models.PriceBreakdown, error)
	EstimateDuration(distanceKm float64) int
	ListConfigs(ctx context.Context) ([]*models.PricingConfig, error)
	UpdateConfig(ctx context.Context, vehicleType string, req *models.UpdatePricingConfigRequest) (*models.PricingConfig, error)
	ListRules(ctx context.Context) ([]*models.PricingRule, error)
	UpsertRule(ctx context.Context, rule *models.PricingRule) error
}

type pricingService struct {
	repo     repository.PricingRepository
	loc      *time.Location
	speedKmh float64
	now      func() time.Time
}

func NewPricingService(repo repository.PricingRepository, loc *time.Location, averageSpeedKmh float64) PricingService {
	if loc == nil {
		loc = time.UTC
	}
	if averageSpeedKmh <= 0 {
		averageSpeedKmh = 30
	}
	return &pricingService{
		repo:     repo,
		loc:      loc,
		speedKmh: averageSpeedKmh,
		now:      time.Now,
	}
}

func (s *pricingService) CalculatePrice(ctx context.Context, req *models.PriceRequest) (*models.PriceBreakdown, error) {
	if req.DistanceKm < 0 || req.DurationMinutes < 0 {
		return nil, apperrors.BadRequest("distância e duração não podem ser negativas")
	}

	cfg, err := s.repo.GetConfig(ctx, req.VehicleType)
	if err != nil {
		return nil, err
	}
	if cfg == nil || !cfg.IsActive {
		return nil, apperrors.NotFound("configuração de preço")
	}

	rules, err := s.repo.ListActiveRules(ctx, req.VehicleType)
	if err != nil {
		return nil, err
	}

	at := s.now()
	if req.ReferenceTime != nil {
		at = *req.ReferenceTime
	}
	at = at.In(s.loc)

	distancePrice := req.DistanceKm * cfg.PricePerKm
	timePrice := req.DurationMinutes * cfg.PricePerMinute
	subtotal := cfg.BaseFare + distancePrice + timePrice

	multiplier := 1.0
	applied := []string{}
	for _, rule := range rules {
		if !ruleApplies(rule, req.VehicleType, at) {
			continue
		}
		applied = append(applied, rule.Name)
		if rule.Multiplier > multiplier || len(applied) == 1 {
			multiplier = rule.Multiplier
		}
	}
	subtotal *= multiplier

	discount := 0.0
	if req.IsElderly {
		discount += elderlyDiscount
	}
	if req.HasDisability {
		discount += disabilityDiscount
	}

	final := subtotal * (1 - discount)
	if final < cfg.BaseFare {
		final = cfg.BaseFare
	}

	return &models.PriceBreakdown{
		BasePrice:         round(cfg.BaseFare),
		DistancePrice:     round(distancePrice),
		TimePrice:         round(timePrice),
		MultiplierApplied: multiplier,
		DiscountApplied:   round(discount),
		FinalPrice:        round(final),
		AppliedRules:      applied,
	}, nil
}

// ruleApplies reports whether any of the rule's conditions holds at t.
// A rule without conditions never applies.
func ruleApplies(rule *models.PricingRule, vehicleType string, t time.Time) bool {
	if !rule.IsActive {
		return false
	}
	if rule.VehicleType != models.VehicleTypeAll && rule.VehicleType != vehicleType {
		return false
	}

	if rule.StartTime != nil && rule.EndTime != nil {
		if inTimeWindow(t, *rule.StartTime, *rule.EndTime) {
			return true
		}
	}
	if len(rule.DaysOfWeek) > 0 {
		for _, d := range rule.DaysOfWeek {
			if int(t.Weekday()) == d {
				return true
			}
		}
	}
	if rule.IsHoliday && isNationalHoliday(t) {
		return true
	}
	return false
}

// inTimeWindow checks start <= t < end, wrapping past midnight when start > end.
func inTimeWindow(t time.Time, start, end string) bool {
	startMin, err := parseClock(start)
	if err != nil {
		return false
	}
	endMin, err := parseClock(end)
	if err != nil {
		return false
	}
	now := t.Hour()*60 + t.Minute()

	if startMin <= endMin {
		return now >= startMin && now < endMin
	}
	return now >= startMin || now < endMin
}

// parseClock turns "HH:MM" or "HH:MM:SS" into minutes since midnight.
func parseClock(v string) (int, error) {
	parts := strings.Split(v, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid clock %q", v)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", v)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", v)
	}
	return h*60 + m, nil
}

func isNationalHoliday(t time.Time) bool {
	return nationalHolidays[t.Format("01-02")]
}

// EstimateDuration estimates trip duration at the configured urban speed.
func (s *pricingService) EstimateDuration(distanceKm float64) int {
	if distanceKm <= 0 {
		return 0
	}
	return int(math.Ceil(distanceKm * 60 / s.speedKmh))
}

func (s *pricingService) ListConfigs(ctx context.Context) ([]*models.PricingConfig, error) {
	return s.repo.ListConfigs(ctx)
}

func (s *pricingService) UpdateConfig(ctx context.Context, vehicleType string, req *models.UpdatePricingConfigRequest) (*models.PricingConfig, error) {
	if !models.IsValidVehicleType(vehicleType) {
		return nil, apperrors.BadRequest("tipo de veículo inválido")
	}
	cfg := &models.PricingConfig{
		VehicleType:    vehicleType,
		BaseFare:       req.BaseFare,
		PricePerKm:     req.PricePerKm,
		PricePerMinute: req.PricePerMinute,
		IsActive:       req.IsActive,
	}
	if err := s.repo.UpdateConfig(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *pricingService) ListRules(ctx context.Context) ([]*models.PricingRule, error) {
	return s.repo.ListRules(ctx)
}

func (s *pricingService) UpsertRule(ctx context.Context, rule *models.PricingRule) error {
	if rule.VehicleType != models.VehicleTypeAll && !models.IsValidVehicleType(rule.VehicleType) {
		return apperrors.BadRequest("tipo de veículo inválido")
	}
	if (rule.StartTime == nil) != (rule.EndTime == nil) {
		return apperrors.BadRequest("informe início e fim da janela de horário")
	}
	if rule.StartTime != nil {
		if _, err := parseClock(*rule.StartTime); err != nil {
			return apperrors.BadRequest("horário inicial inválido")
		}
		if _, err := parseClock(*rule.EndTime); err != nil {
			return apperrors.BadRequest("horário final inválido")
		}
	}
	for _, d := range rule.DaysOfWeek {
		if d < 0 || d > 6 {
			return apperrors.BadRequest("dia da semana inválido")
		}
	}
	return s.repo.UpsertRule(ctx, rule)
}

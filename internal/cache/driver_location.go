package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	driverLocationKeyPrefix = "driver:location:"
	driverActiveRideKey     = "driver:active:"
	patientActiveRideKey    = "patient:active:"
	locationTTL             = 5 * time.Minute
	activeRideTTL           = 6 * time.Hour
)

type DriverLocation struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Heading   float64 `json:"heading,omitempty"`
	Speed     float64 `json:"speed,omitempty"`
	Accuracy  float64 `json:"accuracy,omitempty"`
	UpdatedAt int64   `json:"updated_at"`
}

// DriverLocationCache holds the freshest driver pings, ahead of the database row.
type DriverLocationCache interface {
	UpdateLocation(ctx context.Context, driverID string, lat, lng float64, heading, speed, accuracy *float64) error
	GetDriverLocation(ctx context.Context, driverID string) (*DriverLocation, error)
	GetLocations(ctx context.Context, driverIDs []string) (map[string]*DriverLocation, error)
	RemoveDriver(ctx context.Context, driverID string) error
	SetActiveRide(ctx context.Context, driverID, rideID string) error
	GetActiveRide(ctx context.Context, driverID string) (string, error)
	ClearActiveRide(ctx context.Context, driverID string) error
	SetPatientActiveRide(ctx context.Context, patientID, rideID string) error
	GetPatientActiveRide(ctx context.Context, patientID string) (string, error)
	ClearPatientActiveRide(ctx context.Context, patientID string) error
}

type driverLocationCache struct {
	redis *redis.Client
}

func NewDriverLocationCache(redisClient *redis.Client) DriverLocationCache {
	return &driverLocationCache{redis: redisClient}
}

func (c *driverLocationCache) UpdateLocation(ctx context.Context, driverID string, lat, lng float64, heading, speed, accuracy *float64) error {
	loc := DriverLocation{
		Lat:       lat,
		Lng:       lng,
		UpdatedAt: time.Now().Unix(),
	}
	if heading != nil {
		loc.Heading = *heading
	}
	if speed != nil {
		loc.Speed = *speed
	}
	if accuracy != nil {
		loc.Accuracy = *accuracy
	}

	locJSON, err := json.Marshal(loc)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, driverLocationKeyPrefix+driverID, locJSON, locationTTL).Err()
}

func (c *driverLocationCache) GetDriverLocation(ctx context.Context, driverID string) (*DriverLocation, error) {
	data, err := c.redis.Get(ctx, driverLocationKeyPrefix+driverID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var loc DriverLocation
	if err := json.Unmarshal(data, &loc); err != nil {
		return nil, err
	}
	return &loc, nil
}

// GetLocations fetches the non-expired pings of several drivers in one round trip.
func (c *driverLocationCache) GetLocations(ctx context.Context, driverIDs []string) (map[string]*DriverLocation, error) {
	out := make(map[string]*DriverLocation, len(driverIDs))
	if len(driverIDs) == 0 {
		return out, nil
	}

	keys := make([]string, len(driverIDs))
	for i, id := range driverIDs {
		keys[i] = driverLocationKeyPrefix + id
	}
	values, err := c.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var loc DriverLocation
		if err := json.Unmarshal([]byte(s), &loc); err != nil {
			continue
		}
		out[driverIDs[i]] = &loc
	}
	return out, nil
}

func (c *driverLocationCache) RemoveDriver(ctx context.Context, driverID string) error {
	return c.redis.Del(ctx, driverLocationKeyPrefix+driverID).Err()
}

func (c *driverLocationCache) SetActiveRide(ctx context.Context, driverID, rideID string) error {
	return c.redis.Set(ctx, driverActiveRideKey+driverID, rideID, activeRideTTL).Err()
}

func (c *driverLocationCache) GetActiveRide(ctx context.Context, driverID string) (string, error) {
	result, err := c.redis.Get(ctx, driverActiveRideKey+driverID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return result, err
}

func (c *driverLocationCache) ClearActiveRide(ctx context.Context, driverID string) error {
	return c.redis.Del(ctx, driverActiveRideKey+driverID).Err()
}

func (c *driverLocationCache) SetPatientActiveRide(ctx context.Context, patientID, rideID string) error {
	return c.redis.Set(ctx, patientActiveRideKey+patientID, rideID, activeRideTTL).Err()
}

func (c *driverLocationCache) GetPatientActiveRide(ctx context.Context, patientID string) (string, error) {
	result, err := c.redis.Get(ctx, patientActiveRideKey+patientID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return result, err
}

func (c *driverLocationCache) ClearPatientActiveRide(ctx context.Context, patientID string) error {
	return c.redis.Del(ctx, patientActiveRideKey+patientID).Err()
}

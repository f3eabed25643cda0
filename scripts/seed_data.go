//go:build ignore

package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"

	"github.com/google/uuid"
	"github.com/pwendlys/viaja-mais/internal/cache"
	"github.com/pwendlys/viaja-mais/internal/config"
	"github.com/pwendlys/viaja-mais/internal/database"
	"github.com/pwendlys/viaja-mais/internal/models"
)

// São Paulo, around Avenida Paulista
const (
	baseLat = -23.5614
	baseLng = -46.6559
)

var (
	firstNames = []string{"Maria", "José", "Ana", "João", "Francisca", "Antônio", "Adriana", "Carlos", "Juliana", "Paulo",
		"Márcia", "Pedro", "Aline", "Lucas", "Sandra", "Marcos", "Patrícia", "Rafael", "Fernanda", "Luiz"}
	lastNames = []string{"Silva", "Santos", "Oliveira", "Souza", "Rodrigues", "Ferreira", "Alves", "Pereira", "Lima", "Gomes"}
)

func randomName() string {
	return fmt.Sprintf("%s %s", firstNames[rand.Intn(len(firstNames))], lastNames[rand.Intn(len(lastNames))])
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.DatabaseURL, cfg.DBMaxConnections, cfg.DBMaxIdleConnections)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer db.Close()

	redis, err := database.NewRedis(cfg.RedisURL, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()

	ctx := context.Background()
	driverCache := cache.NewDriverLocationCache(redis.Client)

	// Create patients
	log.Println("Creating 50 patients...")
	patientIDs := make([]string, 0)
	for i := 0; i < 50; i++ {
		id := uuid.New().String()
		_, err := db.ExecContext(ctx, `
			INSERT INTO profiles (id, full_name, phone, role, is_elderly, has_disability)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			id, randomName(), fmt.Sprintf("11%09d", rand.Intn(1000000000)), models.RolePatient,
			rand.Float64() < 0.3, rand.Float64() < 0.15,
		)
		if err != nil {
			log.Printf("Failed to create patient: %v", err)
			continue
		}
		patientIDs = append(patientIDs, id)
	}
	log.Printf("Created %d patients", len(patientIDs))

	// Create drivers
	vehicleTypes := []string{models.VehicleTypeEconomico, models.VehicleTypeConforto, models.VehicleTypeAcessivel}
	log.Println("Creating 30 drivers...")
	driverIDs := make([]string, 0)

	for i := 0; i < 30; i++ {
		id := uuid.New().String()
		name := randomName()
		phone := fmt.Sprintf("11%09d", rand.Intn(1000000000))
		vt := vehicleTypes[rand.Intn(len(vehicleTypes))]

		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			log.Fatalf("Failed to begin transaction: %v", err)
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO profiles (id, full_name, phone, role) VALUES ($1, $2, $3, $4)`,
			id, name, phone, models.RoleDriver)
		if err == nil {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO drivers (id, name, phone, rating, vehicle_make, vehicle_model, vehicle_plate, vehicle_type, vehicle_color, verification_status)
				VALUES ($1, $2, $3, $4, 'Fiat', 'Doblò', $5, $6, 'Branco', $7)`,
				id, name, phone, 4.0+rand.Float64(),
				fmt.Sprintf("%c%c%c%d%c%02d", 'A'+rand.Intn(26), 'A'+rand.Intn(26), 'A'+rand.Intn(26), rand.Intn(10), 'A'+rand.Intn(26), rand.Intn(100)),
				vt, models.VerificationApproved,
			)
		}
		if err != nil {
			tx.Rollback()
			log.Printf("Failed to create driver: %v", err)
			continue
		}
		if err := tx.Commit(); err != nil {
			log.Printf("Failed to commit driver: %v", err)
			continue
		}
		driverIDs = append(driverIDs, id)

		// Put the driver online with a location (60% chance)
		if rand.Float64() < 0.6 {
			lat := baseLat + (rand.Float64()-0.5)*0.1 // +/- 0.05 degrees (~5km)
			lng := baseLng + (rand.Float64()-0.5)*0.1

			_, err := db.ExecContext(ctx, `
				UPDATE drivers SET is_available = true, current_lat = $2, current_lng = $3, last_location_at = now()
				WHERE id = $1`, id, lat, lng)
			if err != nil {
				log.Printf("Failed to put driver %s online: %v", id, err)
				continue
			}
			driverCache.UpdateLocation(ctx, id, lat, lng, nil, nil, nil)
		}
	}
	log.Printf("Created %d drivers", len(driverIDs))

	if len(patientIDs) == 0 || len(driverIDs) == 0 {
		log.Fatal("Nothing was seeded, is the schema loaded? (psql -f scripts/schema.sql)")
	}

	// Summary
	log.Println("\n=== Seed Data Summary ===")
	log.Printf("Patients created: %d", len(patientIDs))
	log.Printf("Drivers created: %d", len(driverIDs))
	log.Println("\nSample Patient ID:", patientIDs[0])
	log.Println("Sample Driver ID:", driverIDs[0])
}

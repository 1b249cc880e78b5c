package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/healthcareplus/scheduling-agent/internal/db"
	"github.com/healthcareplus/scheduling-agent/internal/logging"
	"github.com/healthcareplus/scheduling-agent/internal/scheduling"
)

const (
	patientCount = 50

	// Share of schedule slots left open; the rest simulate pre-existing
	// bookings elsewhere.
	openSlotRatio = 0.7
)

var carriers = []string{
	"Blue Cross Blue Shield",
	"Aetna",
	"Cigna",
	"UnitedHealthcare",
	"Kaiser Permanente",
}

func main() {
	logger := logging.NewLogger(os.Getenv("APP_ENV"))
	defer logger.Sync() //nolint:errcheck

	logger.Info("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		logger.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	repo := scheduling.NewPgRepository(pool)
	gofakeit.Seed(time.Now().UnixNano())

	if err := seedPatients(ctx, repo, patientCount); err != nil {
		logger.Fatal("seed patients", zap.Error(err))
	}
	logger.Info("patients seeded", zap.Int("count", patientCount))

	inserted, err := seedSchedule(ctx, repo)
	if err != nil {
		logger.Fatal("seed schedule", zap.Error(err))
	}
	logger.Info("schedule seeded", zap.Int("slots", inserted))

	logger.Info("seed complete")
}

func seedPatients(ctx context.Context, repo scheduling.Repository, count int) error {
	for i := 0; i < count; i++ {
		dob := gofakeit.DateRange(
			time.Now().AddDate(-90, 0, 0),
			time.Now().AddDate(-18, 0, 0),
		)

		p := scheduling.PatientRecord{
			ID:          uuid.New(),
			FirstName:   gofakeit.FirstName(),
			LastName:    gofakeit.LastName(),
			DOB:         dob.Format(scheduling.SlotDateLayout),
			IsReturning: i%2 == 1,
			Email:       gofakeit.Email(),
			Location:    gofakeit.Address().Address,
			Phone:       gofakeit.Phone(),

			InsuranceCarrier: carriers[gofakeit.Number(0, len(carriers)-1)],
			MemberID:         gofakeit.SSN(),
			GroupNumber:      fmt.Sprintf("%06d", gofakeit.Number(0, 999999)),
		}

		if err := repo.UpsertPatient(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// seedSchedule builds the two-week weekday grid for the roster and closes a
// random share of slots so the listings look lived-in.
func seedSchedule(ctx context.Context, repo scheduling.Repository) (int, error) {
	slots := scheduling.HorizonSlots(scheduling.DoctorNames(), time.Now())
	for i := range slots {
		slots[i].IsAvailable = gofakeit.Float64Range(0, 1) < openSlotRatio
	}
	return repo.InsertSlots(ctx, slots)
}

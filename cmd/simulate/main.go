package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/healthcareplus/scheduling-agent/internal/dialogue"
	"github.com/healthcareplus/scheduling-agent/internal/extract"
	"github.com/healthcareplus/scheduling-agent/internal/logging"
	"github.com/healthcareplus/scheduling-agent/internal/notify"
	redisclient "github.com/healthcareplus/scheduling-agent/internal/redis"
	"github.com/healthcareplus/scheduling-agent/internal/scheduling"
)

// simulate runs the conversation workflow against an in-memory store, with no
// Postgres, Redis, or model endpoint required. By default it reads turns from
// stdin; -demo plays a scripted booking and cancellation.
func main() {
	demo := flag.Bool("demo", false, "run the scripted demo conversation")
	flag.Parse()

	logger := logging.NewLogger("dev")
	defer logger.Sync() //nolint:errcheck

	sessions := buildSessions(logger)
	ctx := context.Background()

	if *demo {
		runDemo(ctx, sessions)
		return
	}

	fmt.Println("HealthCare Plus scheduling assistant (in-memory simulation)")
	fmt.Println("Type a message, or \"quit\" to exit.")
	fmt.Println()
	fmt.Printf("assistant> %s\n\n", sessions.ProcessMessage(ctx, "local", "start conversation"))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		if line == "quit" || line == "exit" {
			return
		}
		if line == "" {
			continue
		}
		fmt.Printf("\nassistant> %s\n\n", sessions.ProcessMessage(ctx, "local", line))
	}
}

func buildSessions(logger *zap.Logger) *dialogue.SessionManager {
	repo := scheduling.NewMemoryRepository()
	seedDemoData(repo)

	sched := scheduling.NewService(repo, redisclient.NewLocalLocker(), logger)
	resolver := extract.NewNameResolver(nil, logger)
	notifier := notify.NewSimulatedSender(logger)

	router := dialogue.NewRouter(sched, resolver, nil, notifier, logger)
	return dialogue.NewSessionManager(router, logger)
}

func seedDemoData(repo *scheduling.MemoryRepository) {
	ctx := context.Background()

	slots := scheduling.HorizonSlots(scheduling.DoctorNames(), time.Now())
	_, _ = repo.InsertSlots(ctx, slots)

	_ = repo.UpsertPatient(ctx, scheduling.PatientRecord{
		ID:          uuid.New(),
		FirstName:   "John",
		LastName:    "Doe",
		DOB:         "1985-03-15",
		IsReturning: true,
		Email:       "john.doe@email.com",
		Location:    "123 Main St, Anytown, USA",
		Phone:       "555-0123",

		InsuranceCarrier: "Blue Cross Blue Shield",
		MemberID:         "123456789",
		GroupNumber:      "987654",
	})
}

func runDemo(ctx context.Context, sessions *dialogue.SessionManager) {
	booking := []string{
		"start conversation",
		"I would like to schedule an appointment",
		"I am John Doe",
		"03/15/1985",
		"123 Main St, Anytown, USA",
		"john.doe@email.com",
		"Dr. Emily Chen",
		"1",
		"self-pay",
	}
	playScript(ctx, sessions, "demo-booking", booking)

	cancellation := []string{
		"start conversation",
		"I need to cancel my appointment",
		"John",
		"Doe",
		"03/15/1985",
	}
	playScript(ctx, sessions, "demo-cancel", cancellation)
}

func playScript(ctx context.Context, sessions *dialogue.SessionManager, sessionID string, turns []string) {
	fmt.Printf("=== %s ===\n\n", sessionID)
	for _, turn := range turns {
		fmt.Printf("you> %s\n", turn)
		fmt.Printf("assistant> %s\n\n", sessions.ProcessMessage(ctx, sessionID, turn))
	}
}

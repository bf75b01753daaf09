package main

import (
	"context"
	"fmt"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/config"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/database"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/logger"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

type seedQuestion struct {
	text    string
	a, b    string
	c, d    string
	correct string
}

type seedGroup struct {
	name      string
	questions []seedQuestion
}

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	fmt.Println("=== Seeding Demo Employees and Exam ===")

	// One shared password for all demo accounts.
	fmt.Print("Enter password for demo employees: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading password")
		return
	}
	fmt.Println()
	if len(bytePassword) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword(bytePassword, cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}

	names := []string{
		"Budi Santoso", "Siti Aminah", "Andi Pratama", "Rina Wati", "Joko Susilo",
		"Ayu Lestari", "Dodi Kusuma", "Eka Putri", "Fahri Hamzah", "Gita Savitri",
	}

	for i, name := range names {
		email := fmt.Sprintf("employee%d@demo.local", i+1)
		_, err := pool.Exec(ctx,
			`INSERT INTO employees (name, email, password_hash)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (email) DO NOTHING`,
			name, email, string(hash),
		)
		if err != nil {
			log.Fatal().Err(err).Str("email", email).Msg("Failed to seed employee")
		}
	}
	fmt.Printf("Seeded %d employees\n", len(names))

	// ─── Demo exam with three question groups ──────────────────────────
	examID := uuid.New()
	_, err = pool.Exec(ctx,
		`INSERT INTO exams (id, title, duration_minutes) VALUES ($1, $2, $3)`,
		examID, "General Banking Knowledge Assessment", 45,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed exam")
	}

	groups := []seedGroup{
		{
			name: "Regulatory Compliance",
			questions: []seedQuestion{
				{"Which document governs customer due diligence?", "KYC policy", "Leave policy", "Style guide", "Org chart", "A"},
				{"Suspicious transactions must be reported within?", "30 days", "No deadline", "24 hours", "One year", "C"},
				{"Who may approve an exception to the AML policy?", "Any teller", "Compliance officer", "The customer", "No one", "B"},
			},
		},
		{
			name: "Product Knowledge",
			questions: []seedQuestion{
				{"A time deposit differs from savings primarily by?", "Color of the card", "Fixed term", "Branch location", "Account number length", "B"},
				{"Which product carries a credit limit?", "Savings account", "Time deposit", "Giro", "Credit card", "D"},
				{"Interest on a giro account is usually?", "Lowest of the three", "Highest of the three", "Negative", "Fixed by law", "A"},
			},
		},
		{
			name: "Customer Service",
			questions: []seedQuestion{
				{"The first step when a customer files a complaint?", "Escalate to legal", "Acknowledge and record it", "Offer a refund", "End the call", "B"},
				{"A frozen account inquiry should be routed to?", "Marketing", "Facilities", "Operations", "Catering", "C"},
			},
		},
	}

	questionCount := 0
	for gi, g := range groups {
		groupID := uuid.New()
		_, err = pool.Exec(ctx,
			`INSERT INTO exam_groups (id, exam_id, name, order_num) VALUES ($1, $2, $3, $4)`,
			groupID, examID, g.name, gi+1,
		)
		if err != nil {
			log.Fatal().Err(err).Str("group", g.name).Msg("Failed to seed group")
		}

		for qi, q := range g.questions {
			_, err = pool.Exec(ctx,
				`INSERT INTO questions
				 (id, group_id, question_text, option_a, option_b, option_c, option_d, correct_option, order_num)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				uuid.New(), groupID, q.text, q.a, q.b, q.c, q.d, q.correct, qi+1,
			)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to seed question")
			}
			questionCount++
		}
	}

	fmt.Printf("Seeded exam %s with %d groups, %d questions\n", examID, len(groups), questionCount)
	fmt.Println("Done.")
}

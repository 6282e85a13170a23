package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"descriptly/internal/adapter/repo"
	"descriptly/internal/domain"
)

// planctl assigns a merchant to a plan tier directly in the database. It is
// an operator escape hatch for comped accounts and support cases; normal plan
// changes flow through billing.
func main() {
	var (
		idFlag    string
		emailFlag string
		planFlag  string
	)

	flag.StringVar(&idFlag, "id", "", "merchant ID to update (UUID)")
	flag.StringVar(&emailFlag, "email", "", "merchant email to update")
	flag.StringVar(&planFlag, "plan", "", "plan to assign (basic, pro, enterprise)")
	flag.Parse()

	merchantID := strings.TrimSpace(idFlag)
	email := strings.TrimSpace(emailFlag)
	plan := domain.Plan(strings.TrimSpace(strings.ToLower(planFlag)))

	if merchantID == "" && email == "" {
		exitWithError(errors.New("either -id or -email must be provided"))
	}
	if !plan.Valid() {
		exitWithError(fmt.Errorf("unsupported plan %q", planFlag))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	merchants := repo.NewMerchantRepository(pool)

	var merchant *domain.Merchant
	if merchantID != "" {
		merchant, err = merchants.GetByID(ctx, merchantID)
	} else {
		merchant, err = merchants.GetByEmail(ctx, email)
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			exitWithError(errors.New("merchant not found"))
		}
		exitWithError(fmt.Errorf("lookup failed: %w", err))
	}

	if merchant.Plan == plan {
		fmt.Printf("merchant %s (%s) already on plan %s\n", merchant.ID, merchant.Email, plan)
		return
	}

	if err := merchants.SetPlan(ctx, merchant.ID, plan); err != nil {
		exitWithError(fmt.Errorf("plan update failed: %w", err))
	}

	fmt.Printf("merchant %s (%s): plan %s -> %s\n", merchant.ID, merchant.Email, merchant.Plan, plan)
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, "planctl:", err)
	os.Exit(1)
}

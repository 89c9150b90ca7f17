package ingest

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mzalendo/chama-ledger/internal/ledger"
	"github.com/mzalendo/chama-ledger/internal/mpesa"
	"github.com/mzalendo/chama-ledger/internal/pricing"
	"github.com/shopspring/decimal"
)

func setupTestIngester(t *testing.T) (*Ingester, *ledger.DB, func()) {
	tempDir, err := os.MkdirTemp("", "chama-ingest-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	logger := log.New(io.Discard)

	loc, err := time.LoadLocation("UTC")
	if err != nil {
		t.Fatalf("failed to load UTC timezone: %v", err)
	}

	dbConn, err := ledger.New(tempDir, logger, loc)
	if err != nil {
		os.RemoveAll(tempDir)
		t.Fatalf("failed to create database: %v", err)
	}

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	parser := mpesa.NewWithClock(func() time.Time { return now })
	ingester := New(parser, pricing.DefaultSchedule(), dbConn, logger)

	return ingester, dbConn, func() {
		dbConn.Close()
		os.RemoveAll(tempDir)
	}
}

func TestIngestMessages(t *testing.T) {
	ingester, dbConn, cleanup := setupTestIngester(t)
	defer cleanup()

	ctx := context.Background()

	// One member with over a year of tenure at the parse date
	joined := time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)
	if _, err := dbConn.AddMember(ctx, "JOHN DOE", "0722000000", joined); err != nil {
		t.Fatalf("failed to add member: %v", err)
	}

	messages := []string{
		"TAJ1RBVSYF Confirmed. You have received Ksh1,000.00 from JOHN DOE 0722000000 on 19/1/24 at 4:37 PM",
		"this is not a confirmation message",
		// Same transaction id as the first message
		"TAJ1RBVSYF Confirmed. You have received Ksh1,000.00 from JOHN DOE 0722000000 on 19/1/24 at 4:37 PM",
	}

	result, err := ingester.IngestMessages(ctx, messages, Config{Concurrency: 1})
	if err != nil {
		t.Fatalf("failed to ingest messages: %v", err)
	}

	if result.Parsed != 2 {
		t.Errorf("expected 2 parsed messages, got %d", result.Parsed)
	}
	if result.Failed != 1 {
		t.Errorf("expected 1 failed message, got %d", result.Failed)
	}
	if len(result.Stored) != 1 {
		t.Fatalf("expected 1 stored contribution, got %d", len(result.Stored))
	}
	if result.Duplicates != 1 {
		t.Errorf("expected 1 duplicate, got %d", result.Duplicates)
	}

	stored := result.Stored[0]
	if stored.Contributor != "JOHN DOE" {
		t.Errorf("expected contributor JOHN DOE, got %s", stored.Contributor)
	}
	// 1000 at 1 member is a 2% fee of 20; a year of tenure halves it
	if !stored.Fee.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected fee 10, got %s", stored.Fee)
	}

	count, err := dbConn.ContributionCount(ctx)
	if err != nil {
		t.Fatalf("failed to count contributions: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 contribution in ledger, got %d", count)
	}
}

func TestIngestMessagesDryRun(t *testing.T) {
	ingester, dbConn, cleanup := setupTestIngester(t)
	defer cleanup()

	ctx := context.Background()

	messages := []string{
		"TAJ1RBVSYF Confirmed. You have received Ksh1,000.00 from JOHN DOE 0722000000 on 19/1/24 at 4:37 PM",
	}

	result, err := ingester.IngestMessages(ctx, messages, Config{Concurrency: 2, DryRun: true})
	if err != nil {
		t.Fatalf("failed to ingest messages: %v", err)
	}
	if result.Parsed != 1 {
		t.Errorf("expected 1 parsed message, got %d", result.Parsed)
	}
	if len(result.Stored) != 0 {
		t.Errorf("expected nothing stored in dry run, got %d", len(result.Stored))
	}

	count, err := dbConn.ContributionCount(ctx)
	if err != nil {
		t.Fatalf("failed to count contributions: %v", err)
	}
	if count != 0 {
		t.Errorf("expected empty ledger after dry run, got %d", count)
	}
}

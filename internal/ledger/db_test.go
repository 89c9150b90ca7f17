package ledger

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mzalendo/chama-ledger/internal/types"
	"github.com/shopspring/decimal"
)

func setupTestDB(t *testing.T) (*DB, func()) {
	// Create a temporary directory for the test database
	tempDir, err := os.MkdirTemp("", "chama-ledger-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	logger := log.New(io.Discard)

	loc, err := time.LoadLocation("UTC")
	if err != nil {
		t.Fatalf("failed to load UTC timezone: %v", err)
	}

	dbConn, err := New(tempDir, logger, loc)
	if err != nil {
		os.RemoveAll(tempDir)
		t.Fatalf("failed to create database: %v", err)
	}

	return dbConn, func() {
		dbConn.Close()
		os.RemoveAll(tempDir)
	}
}

func TestMembers(t *testing.T) {
	dbConn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	joined := time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)
	member, err := dbConn.AddMember(ctx, "JOHN DOE", "0722000000", joined)
	if err != nil {
		t.Fatalf("failed to add member: %v", err)
	}
	if member.ID == 0 {
		t.Error("expected a non-zero member id")
	}

	if _, err := dbConn.AddMember(ctx, "MARY WANJIKU", "", joined.AddDate(0, 6, 0)); err != nil {
		t.Fatalf("failed to add second member: %v", err)
	}

	// Duplicate names are rejected
	if _, err := dbConn.AddMember(ctx, "JOHN DOE", "", joined); err == nil {
		t.Error("expected error adding duplicate member name")
	}

	count, err := dbConn.MemberCount(ctx)
	if err != nil {
		t.Fatalf("failed to count members: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 members, got %d", count)
	}

	members, err := dbConn.ListMembers(ctx)
	if err != nil {
		t.Fatalf("failed to list members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}
	// Ordered by join date, oldest first
	if members[0].Name != "JOHN DOE" {
		t.Errorf("expected JOHN DOE first, got %s", members[0].Name)
	}
	// Join dates survive the round trip through the store
	if !members[0].JoinedAt.Equal(joined) {
		t.Errorf("expected join date %s, got %s", joined, members[0].JoinedAt)
	}

	names, err := dbConn.MemberNames(ctx)
	if err != nil {
		t.Fatalf("failed to list member names: %v", err)
	}
	if len(names) != 2 || names[0] != "JOHN DOE" || names[1] != "MARY WANJIKU" {
		t.Errorf("unexpected member names: %v", names)
	}
}

func TestMembershipDays(t *testing.T) {
	dbConn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	joined := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := dbConn.AddMember(ctx, "JOHN DOE", "", joined); err != nil {
		t.Fatalf("failed to add member: %v", err)
	}

	days, err := dbConn.MembershipDays(ctx, "JOHN DOE", joined.AddDate(0, 0, 365))
	if err != nil {
		t.Fatalf("failed to get membership days: %v", err)
	}
	if days != 365 {
		t.Errorf("expected 365 days, got %d", days)
	}

	// Unknown members have zero tenure
	days, err = dbConn.MembershipDays(ctx, "NOBODY", time.Now())
	if err != nil {
		t.Fatalf("failed to get membership days for unknown member: %v", err)
	}
	if days != 0 {
		t.Errorf("expected 0 days for unknown member, got %d", days)
	}
}

func TestStoreContribution(t *testing.T) {
	dbConn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	contribution := types.Contribution{
		TransactionID: "TAJ1RBVSYF",
		Contributor:   "JOHN DOE",
		PhoneNumber:   "0722000000",
		Amount:        decimal.NewFromInt(1000),
		Fee:           decimal.NewFromInt(20),
		Source:        types.SourceConfirmation,
		Date:          time.Date(2024, 1, 19, 0, 0, 0, 0, time.UTC),
	}

	inserted, err := dbConn.StoreContribution(ctx, contribution)
	if err != nil {
		t.Fatalf("failed to store contribution: %v", err)
	}
	if !inserted {
		t.Error("expected contribution to be inserted")
	}

	// Same transaction id again is skipped, not an error
	inserted, err = dbConn.StoreContribution(ctx, contribution)
	if err != nil {
		t.Fatalf("failed to store duplicate contribution: %v", err)
	}
	if inserted {
		t.Error("expected duplicate contribution to be skipped")
	}

	has, err := dbConn.HasContribution(ctx, "TAJ1RBVSYF")
	if err != nil {
		t.Fatalf("failed to check contribution: %v", err)
	}
	if !has {
		t.Error("expected contribution to be present")
	}

	count, err := dbConn.ContributionCount(ctx)
	if err != nil {
		t.Fatalf("failed to count contributions: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 contribution, got %d", count)
	}
}

func TestListContributions(t *testing.T) {
	dbConn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	old := types.Contribution{
		TransactionID: "OLDTX12345",
		Contributor:   "MARY WANJIKU",
		Amount:        decimal.NewFromInt(500),
		Fee:           decimal.NewFromInt(10),
		Source:        types.SourceConfirmation,
		Date:          time.Now().AddDate(0, 0, -60),
	}
	recent := types.Contribution{
		TransactionID: "NEWTX12345",
		Contributor:   "JOHN DOE",
		Amount:        decimal.NewFromFloat(1250.50),
		Fee:           decimal.NewFromInt(25),
		Source:        types.SourceReceipt,
		Description:   "scanned from record book",
		Date:          time.Now().AddDate(0, 0, -1),
	}

	for _, c := range []types.Contribution{old, recent} {
		if _, err := dbConn.StoreContribution(ctx, c); err != nil {
			t.Fatalf("failed to store contribution: %v", err)
		}
	}

	all, err := dbConn.ListContributions(ctx)
	if err != nil {
		t.Fatalf("failed to list contributions: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 contributions, got %d", len(all))
	}
	// Newest first
	if all[0].TransactionID != "NEWTX12345" {
		t.Errorf("expected NEWTX12345 first, got %s", all[0].TransactionID)
	}
	if !all[0].Amount.Equal(decimal.NewFromFloat(1250.50)) {
		t.Errorf("expected amount 1250.5, got %s", all[0].Amount)
	}
	if all[0].Source != types.SourceReceipt {
		t.Errorf("expected receipt source, got %s", all[0].Source)
	}
	if !all[0].Date.Equal(recent.Date) {
		t.Errorf("expected date %s, got %s", recent.Date, all[0].Date)
	}

	// Days filter excludes the old contribution
	filtered, err := dbConn.ListContributions(ctx, FilterByDays(30))
	if err != nil {
		t.Fatalf("failed to list filtered contributions: %v", err)
	}
	if len(filtered) != 1 || filtered[0].TransactionID != "NEWTX12345" {
		t.Errorf("expected only the recent contribution, got %v", filtered)
	}

	// Limit caps the result set
	limited, err := dbConn.ListContributions(ctx, WithLimit(1))
	if err != nil {
		t.Fatalf("failed to list limited contributions: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("expected 1 contribution with limit, got %d", len(limited))
	}
}

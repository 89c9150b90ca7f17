package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/mzalendo/chama-ledger/internal/commands"
	"github.com/mzalendo/chama-ledger/internal/ledger"
	"github.com/mzalendo/chama-ledger/internal/pricing"
	"github.com/mzalendo/chama-ledger/internal/receipt"
	"github.com/mzalendo/chama-ledger/internal/types"
)

type CLI struct {
	commands.CommonConfig
	commands.OCRConfig

	Image    string `arg:"" help:"Path to receipt or record book image" type:"existingfile"`
	Store    bool   `help:"Record the extracted contribution in the ledger" default:"false"`
	DumpText bool   `help:"Print the raw OCR text before the extracted fields" default:"false"`
}

func (c *CLI) Run() error {
	logger := log.New(os.Stderr)

	// Set log level
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		logger.Fatal("Invalid log level", "error", err)
	}
	logger.SetLevel(level)

	// Load timezone
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		logger.Fatal("Failed to load timezone", "error", err)
	}

	// Initialize ledger database
	database, err := ledger.New(c.DataDir, logger, loc)
	if err != nil {
		logger.Fatal("Failed to initialize database", "error", err)
	}
	defer database.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	image, err := os.ReadFile(c.Image)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	contentType := http.DetectContentType(image)

	scanner, err := commands.SetupScanner(ctx, c.OCRConfig, logger)
	if err != nil {
		return err
	}

	text, err := scanner.ScanImage(ctx, image, contentType)
	if err != nil {
		return fmt.Errorf("failed to scan image: %w", err)
	}
	if c.DumpText {
		fmt.Println(text)
	}

	// The member roster doubles as the known-name list
	knownNames, err := database.MemberNames(ctx)
	if err != nil {
		return fmt.Errorf("failed to load member roster: %w", err)
	}

	data := receipt.Extract(text, knownNames)

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling extracted data: %w", err)
	}
	fmt.Println(string(b))

	if !c.Store {
		return nil
	}
	if data.Amount == nil {
		return fmt.Errorf("no amount found in receipt text; not storing")
	}
	return c.storeContribution(ctx, database, text, data, logger)
}

func (c *CLI) storeContribution(ctx context.Context, database *ledger.DB, text string, data types.ReceiptData, logger *log.Logger) error {
	contributor := data.FoundName
	if contributor == "" {
		contributor = "UNKNOWN"
	}

	date := time.Now()
	if data.Date != nil {
		date = *data.Date
	}

	memberCount, err := database.MemberCount(ctx)
	if err != nil {
		return fmt.Errorf("failed to count members: %w", err)
	}
	membershipDays, err := database.MembershipDays(ctx, contributor, date)
	if err != nil {
		return fmt.Errorf("failed to look up membership tenure: %w", err)
	}

	schedule := pricing.DefaultSchedule()
	fee := schedule.DiscountedFee(*data.Amount, memberCount, membershipDays)

	inserted, err := database.StoreContribution(ctx, types.Contribution{
		TransactionID: receiptTransactionID(text),
		Contributor:   contributor,
		Amount:        *data.Amount,
		Fee:           fee,
		Source:        types.SourceReceipt,
		Description:   data.Description,
		Date:          date,
	})
	if err != nil {
		return err
	}
	if !inserted {
		logger.Warn("Receipt already recorded")
		return nil
	}
	logger.Info("Contribution recorded", "contributor", contributor, "amount", data.Amount, "fee", fee)
	return nil
}

// receiptTransactionID derives a stable synthetic transaction id from the
// OCR text, so rescanning the same receipt does not double-book it.
func receiptTransactionID(text string) string {
	h := sha256.Sum256([]byte(text))
	return "R" + strings.ToUpper(hex.EncodeToString(h[:])[:9])
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("chama-scan"),
		kong.Description("Extract contribution details from a photographed receipt or record book page"),
	)
	err := cli.Run()
	ctx.FatalIfErrorf(err)
}

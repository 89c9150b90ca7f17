package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/mzalendo/chama-ledger/internal/commands"
	"github.com/mzalendo/chama-ledger/internal/ingest"
	"github.com/mzalendo/chama-ledger/internal/ledger"
	"github.com/mzalendo/chama-ledger/internal/mpesa"
	"github.com/mzalendo/chama-ledger/internal/pricing"
	"github.com/mzalendo/chama-ledger/internal/types"
)

type CLI struct {
	commands.CommonConfig

	Message     string `help:"A single confirmation message to parse" xor:"input"`
	File        string `help:"Path to a file with one confirmation message per line" xor:"input" type:"existingfile"`
	Concurrency int    `help:"Number of concurrent operations to process" default:"10"`
	NoProgress  bool   `help:"Disable progress bar" default:"false"`
	DryRun      bool   `help:"Parse and price without storing" default:"false"`
}

func (c *CLI) Run() error {
	logger := log.New(os.Stderr)

	// Set log level
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		logger.Fatal("Invalid log level", "error", err)
	}
	logger.SetLevel(level)

	if c.Message == "" && c.File == "" {
		return fmt.Errorf("either --message or --file is required")
	}

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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := ledger.ApplyMigrations(ctx, database.DB(), func(msg string, args ...interface{}) {
		logger.Info(msg, args...)
	}); err != nil {
		logger.Fatal("Failed to apply migrations", "error", err)
	}

	parser := mpesa.New()
	schedule := pricing.DefaultSchedule()
	ingester := ingest.New(parser, schedule, database, logger)

	if c.Message != "" {
		return c.runSingle(ctx, ingester, logger)
	}
	return c.runBatch(ctx, ingester, logger)
}

func (c *CLI) runSingle(ctx context.Context, ingester *ingest.Ingester, logger *log.Logger) error {
	result, err := ingester.IngestMessages(ctx, []string{c.Message}, ingest.Config{
		Concurrency: 1,
		Progress:    false,
		DryRun:      c.DryRun,
	})
	if err != nil {
		return err
	}
	if result.Failed > 0 {
		return fmt.Errorf("could not parse message; check that it is an unmodified confirmation message")
	}
	if result.Duplicates > 0 {
		logger.Warn("Contribution already recorded")
		return nil
	}
	if len(result.Stored) > 0 {
		return printJSON(result.Stored[0])
	}
	return nil
}

func (c *CLI) runBatch(ctx context.Context, ingester *ingest.Ingester, logger *log.Logger) error {
	messages, err := readMessages(c.File)
	if err != nil {
		return err
	}

	result, err := ingester.IngestMessages(ctx, messages, ingest.Config{
		Concurrency: c.Concurrency,
		Progress:    !c.NoProgress,
		DryRun:      c.DryRun,
	})
	if err != nil {
		return err
	}

	logger.Info("Batch complete",
		"parsed", result.Parsed,
		"failed", result.Failed,
		"stored", len(result.Stored),
		"duplicates", result.Duplicates)
	return nil
}

// readMessages reads one confirmation message per line, skipping blanks
func readMessages(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open message file: %w", err)
	}
	defer file.Close()

	var messages []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			messages = append(messages, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read message file: %w", err)
	}
	return messages, nil
}

func printJSON(v types.Contribution) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling contribution: %w", err)
	}
	fmt.Println(string(b))
	return nil
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("chama-parse"),
		kong.Description("Parse mobile-money confirmation messages into priced ledger entries"),
	)
	err := cli.Run()
	ctx.FatalIfErrorf(err)
}

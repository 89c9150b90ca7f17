package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mzalendo/chama-ledger/internal/ledger"
	"github.com/mzalendo/chama-ledger/internal/mpesa"
	"github.com/mzalendo/chama-ledger/internal/pricing"
	"github.com/mzalendo/chama-ledger/internal/types"
	"golang.org/x/sync/errgroup"
)

// Config controls a batch ingestion run
type Config struct {
	Concurrency int
	Progress    bool
	DryRun      bool
}

// Result summarizes a batch ingestion run
type Result struct {
	Stored     []types.Contribution
	Parsed     int
	Failed     int
	Duplicates int
}

// Ingester turns raw confirmation messages into priced ledger entries
type Ingester struct {
	parser   *mpesa.Parser
	schedule *pricing.Schedule
	db       *ledger.DB
	logger   *log.Logger
}

// New creates a new ingester with explicit dependencies
func New(parser *mpesa.Parser, schedule *pricing.Schedule, db *ledger.DB, logger *log.Logger) *Ingester {
	return &Ingester{
		parser:   parser,
		schedule: schedule,
		db:       db,
		logger:   logger,
	}
}

// IngestMessages parses each message, prices the contribution against the
// current roster and stores it. Unparseable messages are counted and logged,
// never fatal; duplicate transaction ids are skipped by the store.
func (i *Ingester) IngestMessages(ctx context.Context, messages []string, config Config) (*Result, error) {
	startTime := time.Now()
	i.logger.Info("Starting message ingestion", "total_messages", len(messages))

	memberCount, err := i.db.MemberCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("error counting members: %w", err)
	}

	var progress Progress
	if !config.Progress {
		progress = NewNoopProgress()
	} else {
		progress = NewBarProgress(len(messages))
	}
	defer progress.Close()

	var (
		mu     sync.Mutex
		result Result
	)

	concurrency := config.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, message := range messages {
		message := message
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			defer progress.Add(1)

			parsed, ok := i.parser.Parse(message)
			if !ok {
				i.logger.Warn("Could not parse confirmation message", "message", message)
				mu.Lock()
				result.Failed++
				mu.Unlock()
				return nil
			}

			contribution, err := i.priceContribution(gCtx, parsed, memberCount)
			if err != nil {
				return err
			}

			mu.Lock()
			result.Parsed++
			mu.Unlock()

			if config.DryRun {
				return nil
			}

			inserted, err := i.db.StoreContribution(gCtx, *contribution)
			if err != nil {
				return fmt.Errorf("error storing contribution: %w", err)
			}

			mu.Lock()
			if inserted {
				result.Stored = append(result.Stored, *contribution)
			} else {
				result.Duplicates++
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	i.logger.Info("Message ingestion complete",
		"parsed", result.Parsed,
		"failed", result.Failed,
		"stored", len(result.Stored),
		"duplicates", result.Duplicates,
		"duration", time.Since(startTime))

	return &result, nil
}

// priceContribution computes the fee for a parsed confirmation, applying the
// loyalty discount when the contributor is on the roster.
func (i *Ingester) priceContribution(ctx context.Context, parsed *types.ParsedConfirmation, memberCount int) (*types.Contribution, error) {
	membershipDays, err := i.db.MembershipDays(ctx, parsed.ContributorName, parsed.Date)
	if err != nil {
		return nil, fmt.Errorf("error looking up membership tenure: %w", err)
	}

	fee := i.schedule.DiscountedFee(parsed.Amount, memberCount, membershipDays)

	return &types.Contribution{
		TransactionID: parsed.TransactionID,
		Contributor:   parsed.ContributorName,
		PhoneNumber:   parsed.PhoneNumber,
		Amount:        parsed.Amount,
		Fee:           fee,
		Source:        types.SourceConfirmation,
		Date:          parsed.Date,
	}, nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/mzalendo/chama-ledger/internal/commands"
	"github.com/mzalendo/chama-ledger/internal/ledger"
)

// AppContext carries the shared dependencies into subcommands
type AppContext struct {
	DB       *ledger.DB
	Logger   *log.Logger
	Timezone *time.Location
}

type AddMemberCmd struct {
	Name     string `arg:"" help:"Member name"`
	Phone    string `help:"Member phone number"`
	JoinedAt string `help:"Join date (YYYY-MM-DD, default: today)"`
}

func (c *AddMemberCmd) Run(app *AppContext) error {
	ctx := context.Background()

	joinedAt := time.Now().In(app.Timezone)
	if c.JoinedAt != "" {
		var err error
		joinedAt, err = time.ParseInLocation("2006-01-02", c.JoinedAt, app.Timezone)
		if err != nil {
			return fmt.Errorf("invalid join date (use YYYY-MM-DD): %w", err)
		}
	}

	member, err := app.DB.AddMember(ctx, c.Name, c.Phone, joinedAt)
	if err != nil {
		return err
	}
	app.Logger.Info("Member added", "id", member.ID, "name", member.Name, "joined_at", member.JoinedAt.Format("2006-01-02"))
	return nil
}

type ListMembersCmd struct{}

func (c *ListMembersCmd) Run(app *AppContext) error {
	ctx := context.Background()

	members, err := app.DB.ListMembers(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, m := range members {
		tenure := int(now.Sub(m.JoinedAt).Hours() / 24)
		if tenure < 0 {
			tenure = 0
		}
		fmt.Printf("%s (joined %s, %d days", m.Name, m.JoinedAt.Format("2006-01-02"), tenure)
		if m.Phone != "" {
			fmt.Printf(", %s", m.Phone)
		}
		fmt.Println(")")
	}
	if len(members) == 0 {
		fmt.Println("No members on the roster.")
	}
	return nil
}

type ListContributionsCmd struct {
	Days  int `help:"Only show contributions from the last N days"`
	Limit int `help:"Maximum number of contributions to show" default:"50"`
}

func (c *ListContributionsCmd) Run(app *AppContext) error {
	ctx := context.Background()

	opts := []ledger.ContributionQueryOption{ledger.WithLimit(c.Limit)}
	if c.Days > 0 {
		opts = append(opts, ledger.FilterByDays(c.Days))
	}

	contributions, err := app.DB.ListContributions(ctx, opts...)
	if err != nil {
		return err
	}

	for _, contrib := range contributions {
		fmt.Printf("%s  %-10s  %10s  fee %8s  %s  %s\n",
			contrib.Date.Format("2006-01-02"),
			contrib.TransactionID,
			contrib.Amount,
			contrib.Fee,
			contrib.Source,
			contrib.Contributor)
	}
	if len(contributions) == 0 {
		fmt.Println("No contributions recorded.")
	}
	return nil
}

type CLI struct {
	commands.CommonConfig

	AddMember         AddMemberCmd         `cmd:"" help:"Add a member to the roster"`
	ListMembers       ListMembersCmd       `cmd:"" help:"List the member roster"`
	ListContributions ListContributionsCmd `cmd:"" help:"List recorded contributions"`
}

func main() {
	cli := CLI{}
	kctx := kong.Parse(&cli,
		kong.Name("chama-ledger"),
		kong.Description("Manage the member roster and contribution ledger"),
	)

	logger := log.New(os.Stderr)
	level, err := log.ParseLevel(cli.LogLevel)
	if err != nil {
		logger.Fatal("Invalid log level", "error", err)
	}
	logger.SetLevel(level)

	loc, err := time.LoadLocation(cli.Timezone)
	if err != nil {
		logger.Fatal("Failed to load timezone", "error", err)
	}

	database, err := ledger.New(cli.DataDir, logger, loc)
	if err != nil {
		logger.Fatal("Failed to initialize database", "error", err)
	}
	defer database.Close()

	if err := ledger.ApplyMigrations(context.Background(), database.DB(), func(msg string, args ...interface{}) {
		logger.Info(msg, args...)
	}); err != nil {
		logger.Fatal("Failed to apply migrations", "error", err)
	}

	err = kctx.Run(&AppContext{DB: database, Logger: logger, Timezone: loc})
	kctx.FatalIfErrorf(err)
}

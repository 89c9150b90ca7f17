package main

import (
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/mzalendo/chama-ledger/internal/commands"
	"github.com/mzalendo/chama-ledger/internal/ledger"
	"github.com/mzalendo/chama-ledger/internal/mcp"
	"github.com/mzalendo/chama-ledger/internal/mpesa"
	"github.com/mzalendo/chama-ledger/internal/pricing"
)

type CLI struct {
	commands.CommonConfig
}

func (c *CLI) Run() error {
	// MCP talks on stdout; all logging goes to stderr
	logger := log.New(os.Stderr)

	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		logger.Fatal("Invalid log level", "error", err)
	}
	logger.SetLevel(level)

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		logger.Fatal("Failed to load timezone", "error", err)
	}

	database, err := ledger.New(c.DataDir, logger, loc)
	if err != nil {
		logger.Fatal("Failed to initialize database", "error", err)
	}
	defer database.Close()

	server := mcp.New(database, mpesa.New(), pricing.DefaultSchedule(), logger)
	return server.Run()
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("chama-mcp-server"),
		kong.Description("MCP server exposing contribution parsing, receipt extraction and fee tools"),
	)
	err := cli.Run()
	ctx.FatalIfErrorf(err)
}

package mcp

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mzalendo/chama-ledger/internal/ledger"
	"github.com/mzalendo/chama-ledger/internal/mpesa"
	"github.com/mzalendo/chama-ledger/internal/pricing"
	"github.com/mzalendo/chama-ledger/internal/receipt"
	"github.com/shopspring/decimal"
)

type Server struct {
	db       *ledger.DB
	parser   *mpesa.Parser
	schedule *pricing.Schedule
	logger   *log.Logger
}

func New(db *ledger.DB, parser *mpesa.Parser, schedule *pricing.Schedule, logger *log.Logger) *Server {
	return &Server{
		db:       db,
		parser:   parser,
		schedule: schedule,
		logger:   logger,
	}
}

func (s *Server) Run() error {
	mcpServer := server.NewMCPServer(
		"Chama Contribution Ledger",
		"1.0.0",
	)

	mcpServer.AddTool(mcp.NewTool("parse_confirmation",
		mcp.WithDescription("Parse a mobile-money confirmation message into a structured transaction record"),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("The raw confirmation message text"),
		),
	), s.parseConfirmationHandler)

	mcpServer.AddTool(mcp.NewTool("extract_receipt",
		mcp.WithDescription("Extract amount, date and a known member name from OCR'd receipt text"),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Raw OCR text from a photographed receipt or record book"),
		),
	), s.extractReceiptHandler)

	mcpServer.AddTool(mcp.NewTool("calculate_fee",
		mcp.WithDescription("Calculate the transaction fee for a contribution amount"),
		mcp.WithString("amount",
			mcp.Required(),
			mcp.Description("Contribution amount"),
		),
		mcp.WithString("member_count",
			mcp.Required(),
			mcp.Description("Current number of group members"),
		),
		mcp.WithString("membership_days",
			mcp.Description("Contributor's membership tenure in days (default: 0)"),
		),
	), s.calculateFeeHandler)

	mcpServer.AddTool(mcp.NewTool("list_contributions",
		mcp.WithDescription("List recorded contributions, newest first"),
		mcp.WithString("days",
			mcp.Description("Number of days to look back (default: all)"),
		),
		mcp.WithString("limit",
			mcp.Description("Maximum number of results to return (default: 50)"),
		),
	), s.listContributionsHandler)

	// Start the stdio server
	if err := server.ServeStdio(mcpServer); err != nil {
		return err
	}

	return nil
}

func (s *Server) parseConfirmationHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, ok := request.Params.Arguments["message"].(string)
	if !ok {
		return nil, errors.New("message must be a string")
	}

	parsed, ok := s.parser.Parse(message)
	if !ok {
		return mcp.NewToolResultText("Could not parse the message: no complete transaction record found. Check that it is an unmodified confirmation message."), nil
	}

	result := fmt.Sprintf("Transaction ID: %s\nAmount: %s\nContributor: %s\nPhone: %s\nDate: %s\n",
		parsed.TransactionID, parsed.Amount, parsed.ContributorName, parsed.PhoneNumber,
		parsed.Date.Format("2006-01-02"))
	return mcp.NewToolResultText(result), nil
}

func (s *Server) extractReceiptHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, ok := request.Params.Arguments["text"].(string)
	if !ok {
		return nil, errors.New("text must be a string")
	}

	knownNames, err := s.db.MemberNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load member roster: %w", err)
	}

	data := receipt.Extract(text, knownNames)

	result := fmt.Sprintf("Description: %s\n", data.Description)
	if data.Amount != nil {
		result += fmt.Sprintf("Amount: %s\n", data.Amount)
	}
	if data.Date != nil {
		result += fmt.Sprintf("Date: %s\n", data.Date.Format("2006-01-02"))
	}
	if data.FoundName != "" {
		result += fmt.Sprintf("Member: %s\n", data.FoundName)
	}
	return mcp.NewToolResultText(result), nil
}

func (s *Server) calculateFeeHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	amountArg, ok := request.Params.Arguments["amount"].(string)
	if !ok {
		return nil, errors.New("amount must be a string")
	}
	amount, err := decimal.NewFromString(amountArg)
	if err != nil {
		return nil, fmt.Errorf("amount must be a valid number: %w", err)
	}

	memberCount, err := intArgument(request, "member_count", 0)
	if err != nil {
		return nil, err
	}
	membershipDays, err := intArgument(request, "membership_days", 0)
	if err != nil {
		return nil, err
	}

	fee := s.schedule.TransactionFee(amount, memberCount)
	discount := pricing.LoyaltyDiscount(membershipDays)
	discounted := fee.Mul(decimal.NewFromInt(1).Sub(discount))

	result := fmt.Sprintf("Fee: %s\nLoyalty discount: %s\nFee after discount: %s\n",
		fee, discount, discounted)
	return mcp.NewToolResultText(result), nil
}

func (s *Server) listContributionsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	days, err := intArgument(request, "days", 0)
	if err != nil {
		return nil, err
	}
	limit, err := intArgument(request, "limit", 50)
	if err != nil {
		return nil, err
	}

	opts := []ledger.ContributionQueryOption{ledger.WithLimit(limit)}
	if days > 0 {
		opts = append(opts, ledger.FilterByDays(days))
	}

	contributions, err := s.db.ListContributions(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to list contributions: %w", err)
	}

	var result string
	for _, c := range contributions {
		result += fmt.Sprintf("%s: %s - %s (fee %s)\n", c.Date.Format("2006-01-02"), c.Amount, c.Contributor, c.Fee)
		result += fmt.Sprintf("  Transaction ID: %s\n", c.TransactionID)
		if c.PhoneNumber != "" {
			result += fmt.Sprintf("  Phone: %s\n", c.PhoneNumber)
		}
		if c.Description != "" {
			result += fmt.Sprintf("  Description: %s\n", c.Description)
		}
		result += fmt.Sprintf("  Source: %s\n\n", c.Source)
	}
	if result == "" {
		result = "No contributions found.\n"
	}

	return mcp.NewToolResultText(result), nil
}

// intArgument reads an optional integer tool argument that may arrive as a
// number or a string
func intArgument(request mcp.CallToolRequest, name string, fallback int) (int, error) {
	val, ok := request.Params.Arguments[name]
	if !ok {
		return fallback, nil
	}
	switch v := val.(type) {
	case float64:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", name, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s must be a number or string", name)
	}
}

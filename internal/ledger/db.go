package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/charmbracelet/log"
	"github.com/mzalendo/chama-ledger/internal/types"
	"github.com/shopspring/decimal"
)

// DB is the SQLite-backed store for the member roster and the contribution
// ledger
type DB struct {
	db       *sql.DB
	logger   *log.Logger
	timezone *time.Location
}

// New creates a new ledger database connection
func New(dataDir string, logger *log.Logger, timezone *time.Location) (*DB, error) {
	// Create data directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %v", err)
	}

	dbPath := filepath.Join(dataDir, "ledger.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return nil, fmt.Errorf("failed to set database pragmas: %v", err)
	}

	d := &DB{
		db:       db,
		logger:   logger,
		timezone: timezone,
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %v", err)
	}

	return d, nil
}

// createTables creates the necessary tables in the database
func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS members (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			phone TEXT,
			joined_at DATE NOT NULL
		);

		CREATE TABLE IF NOT EXISTS contributions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			transaction_id TEXT NOT NULL UNIQUE,
			contributor TEXT NOT NULL,
			phone TEXT,
			amount DECIMAL(15,2) NOT NULL,
			fee DECIMAL(15,2) NOT NULL,
			source TEXT NOT NULL,
			description TEXT,
			date DATE NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create tables: %v", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_contributions_contributor ON contributions(contributor)",
		"CREATE INDEX IF NOT EXISTS idx_contributions_date ON contributions(date)",
		"CREATE INDEX IF NOT EXISTS idx_members_name ON members(name)",
	}

	for _, index := range indexes {
		if _, err := db.Exec(index); err != nil {
			return fmt.Errorf("failed to create index: %v", err)
		}
	}

	return nil
}

// AddMember adds a member to the roster. Adding a name that already exists
// is an error.
func (d *DB) AddMember(ctx context.Context, name, phone string, joinedAt time.Time) (*types.Member, error) {
	result, err := d.db.ExecContext(ctx, `
		INSERT INTO members (name, phone, joined_at) VALUES (?, ?, ?)
	`, name, phone, joinedAt.In(d.timezone))
	if err != nil {
		return nil, fmt.Errorf("failed to add member: %v", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get member id: %v", err)
	}
	d.logger.Debug("Member added", "id", id, "name", name)

	return &types.Member{ID: id, Name: name, Phone: phone, JoinedAt: joinedAt}, nil
}

// ListMembers returns the roster ordered by join date, oldest first
func (d *DB) ListMembers(ctx context.Context) ([]types.Member, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, name, phone, joined_at FROM members ORDER BY joined_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %v", err)
	}
	defer rows.Close()

	var members []types.Member
	for rows.Next() {
		var m types.Member
		var phone sql.NullString
		var joinedAt time.Time
		if err := rows.Scan(&m.ID, &m.Name, &phone, &joinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %v", err)
		}
		m.Phone = phone.String
		m.JoinedAt = joinedAt.In(d.timezone)
		members = append(members, m)
	}
	return members, rows.Err()
}

// MemberNames returns roster names in join order, for use as the known-name
// list when extracting receipts
func (d *DB) MemberNames(ctx context.Context) ([]string, error) {
	members, err := d.ListMembers(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.Name
	}
	return names, nil
}

// MemberCount returns the current roster size
func (d *DB) MemberCount(ctx context.Context) (int, error) {
	var count int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM members").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count members: %v", err)
	}
	return count, nil
}

// MembershipDays returns the tenure in whole days of the named member at the
// given instant, or 0 if the name is not on the roster.
func (d *DB) MembershipDays(ctx context.Context, name string, at time.Time) (int, error) {
	var joined time.Time
	err := d.db.QueryRowContext(ctx, "SELECT joined_at FROM members WHERE name = ?", name).Scan(&joined)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up member: %v", err)
	}
	days := int(at.Sub(joined).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return days, nil
}

// StoreContribution inserts a contribution into the ledger. A contribution
// whose transaction id is already recorded is skipped; the bool reports
// whether a row was actually inserted.
func (d *DB) StoreContribution(ctx context.Context, c types.Contribution) (bool, error) {
	d.logger.Debug("Storing contribution",
		"transaction_id", c.TransactionID,
		"contributor", c.Contributor,
		"amount", c.Amount,
		"source", c.Source)

	result, err := d.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO contributions (
			transaction_id, contributor, phone, amount, fee, source, description, date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.TransactionID, c.Contributor, c.PhoneNumber,
		c.Amount.String(), c.Fee.String(), string(c.Source), c.Description,
		c.Date.In(d.timezone),
	)
	if err != nil {
		return false, fmt.Errorf("failed to store contribution: %v", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %v", err)
	}
	if rowsAffected == 0 {
		d.logger.Debug("Contribution already recorded", "transaction_id", c.TransactionID)
		return false, nil
	}
	return true, nil
}

// HasContribution reports whether a transaction id is already in the ledger
func (d *DB) HasContribution(ctx context.Context, transactionID string) (bool, error) {
	var count int
	err := d.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM contributions WHERE transaction_id = ?", transactionID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check contribution: %v", err)
	}
	return count > 0, nil
}

// ContributionQueryOption modifies a contribution listing query
type ContributionQueryOption func(*contributionQuery)

type contributionQuery struct {
	limit int
	days  int
}

// WithLimit caps the number of returned contributions
func WithLimit(limit int) ContributionQueryOption {
	return func(q *contributionQuery) {
		q.limit = limit
	}
}

// FilterByDays restricts results to contributions dated within the last n days
func FilterByDays(days int) ContributionQueryOption {
	return func(q *contributionQuery) {
		q.days = days
	}
}

// ListContributions returns ledger entries, newest first
func (d *DB) ListContributions(ctx context.Context, opts ...ContributionQueryOption) ([]types.Contribution, error) {
	var q contributionQuery
	for _, opt := range opts {
		opt(&q)
	}

	query := `
		SELECT transaction_id, contributor, phone, amount, fee, source, description, date
		FROM contributions
	`
	args := []any{}
	if q.days > 0 {
		query += " WHERE date >= date('now', ? || ' days')"
		args = append(args, -q.days)
	}
	query += " ORDER BY date DESC, id DESC"
	if q.limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list contributions: %v", err)
	}
	defer rows.Close()

	var contributions []types.Contribution
	for rows.Next() {
		var c types.Contribution
		var phone, description sql.NullString
		var amount, fee, source string
		var date time.Time
		if err := rows.Scan(&c.TransactionID, &c.Contributor, &phone, &amount, &fee, &source, &description, &date); err != nil {
			return nil, fmt.Errorf("failed to scan contribution: %v", err)
		}
		c.PhoneNumber = phone.String
		c.Description = description.String
		c.Source = types.ContributionSource(source)
		if c.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("failed to parse contribution amount: %v", err)
		}
		if c.Fee, err = decimal.NewFromString(fee); err != nil {
			return nil, fmt.Errorf("failed to parse contribution fee: %v", err)
		}
		c.Date = date.In(d.timezone)
		contributions = append(contributions, c)
	}
	return contributions, rows.Err()
}

// ContributionCount returns the total number of ledger entries
func (d *DB) ContributionCount(ctx context.Context) (int, error) {
	var count int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM contributions").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count contributions: %v", err)
	}
	return count, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// DB exposes the underlying connection for migrations
func (d *DB) DB() *sql.DB {
	return d.db
}

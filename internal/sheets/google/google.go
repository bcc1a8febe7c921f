package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"cashflow/internal/core"
	ports "cashflow/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	DefaultTransactionsSheet = "Transactions"
	DefaultUsersSheet        = "Users"
)

type Config struct {
	SpreadsheetID      string
	ServiceAccountJSON string
	ServiceAccountFile string
	TransactionsSheet  string
	UsersSheet         string
}

// Client stores transactions and users in a spreadsheet: one row per record.
type Client struct {
	svc               *gsheet.Service
	spreadsheetID     string
	transactionsSheet string
	usersSheet        string
}

// Ensure interface conformance
var (
	_ ports.TransactionRepository = (*Client)(nil)
	_ ports.UserRepository        = (*Client)(nil)
)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	creds, err := credentialsJSON(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, cfg), nil
}

// NewWithService wraps an existing service, e.g. one pointed at a test
// endpoint.
func NewWithService(svc *gsheet.Service, cfg Config) *Client {
	c := &Client{
		svc:               svc,
		spreadsheetID:     strings.TrimSpace(cfg.SpreadsheetID),
		transactionsSheet: strings.TrimSpace(cfg.TransactionsSheet),
		usersSheet:        strings.TrimSpace(cfg.UsersSheet),
	}
	if c.transactionsSheet == "" {
		c.transactionsSheet = DefaultTransactionsSheet
	}
	if c.usersSheet == "" {
		c.usersSheet = DefaultUsersSheet
	}
	return c
}

// credentialsJSON resolves inline JSON, then a key file, then
// GOOGLE_APPLICATION_CREDENTIALS.
func credentialsJSON(ctx context.Context, cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.ServiceAccountJSON)
	file := strings.TrimSpace(cfg.ServiceAccountFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		return []byte(inline), nil
	case file != "":
		slog.InfoContext(ctx, "Reading service account credentials", "path", file)
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

func (c *Client) ListByOwner(ctx context.Context, owner string) ([]core.Transaction, error) {
	values, err := c.readAll(ctx, c.transactionsSheet, "A:H")
	if err != nil {
		return nil, err
	}
	return parseTransactions(values, owner), nil
}

// Upsert updates the row holding owner's id in place, or appends one.
func (c *Client) Upsert(ctx context.Context, tx core.Transaction) (bool, error) {
	if err := tx.Validate(); err != nil {
		return false, fmt.Errorf("validation failed: %w", err)
	}
	values, err := c.readAll(ctx, c.transactionsSheet, "A:H")
	if err != nil {
		return false, err
	}

	if row := findTransactionRow(values, tx.Owner, tx.ID); row > 0 {
		rng := rowRange(c.transactionsSheet, row)
		vr := &gsheet.ValueRange{Values: [][]any{transactionRow(tx)}}
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption("RAW").Context(ctx).Do(); err != nil {
			return false, fmt.Errorf("update %s: %w", rng, err)
		}
		return false, nil
	}

	rows := [][]any{transactionRow(tx)}
	if len(values) == 0 {
		rows = append([][]any{transactionHeader}, rows...)
	}
	if err := c.append(ctx, c.transactionsSheet+"!A:H", rows); err != nil {
		return false, err
	}
	return true, nil
}

// Delete clears the row rather than removing it so other row numbers stay
// stable. Cleared rows are skipped when reading.
func (c *Client) Delete(ctx context.Context, owner string, id int64) error {
	values, err := c.readAll(ctx, c.transactionsSheet, "A:H")
	if err != nil {
		return err
	}
	row := findTransactionRow(values, owner, id)
	if row == 0 {
		return ports.ErrNotFound
	}
	rng := rowRange(c.transactionsSheet, row)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}

func (c *Client) CreateUser(ctx context.Context, u ports.StoredUser) error {
	values, err := c.readAll(ctx, c.usersSheet, "A:C")
	if err != nil {
		return err
	}
	for _, existing := range parseUsers(values) {
		if sameEmail(existing.Email, u.Email) {
			return ports.ErrUserExists
		}
	}
	rows := [][]any{{u.Name, strings.TrimSpace(u.Email), u.PasswordHash}}
	if len(values) == 0 {
		rows = append([][]any{userHeader}, rows...)
	}
	return c.append(ctx, c.usersSheet+"!A:C", rows)
}

func (c *Client) FindUser(ctx context.Context, email string) (ports.StoredUser, error) {
	values, err := c.readAll(ctx, c.usersSheet, "A:C")
	if err != nil {
		return ports.StoredUser{}, err
	}
	for _, u := range parseUsers(values) {
		if sameEmail(u.Email, email) {
			return u, nil
		}
	}
	return ports.StoredUser{}, ports.ErrUserNotFound
}

func (c *Client) readAll(ctx context.Context, sheet, cols string) ([][]any, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!%s", sheet, cols)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (c *Client) append(ctx context.Context, rng string, rows [][]any) error {
	vr := &gsheet.ValueRange{Values: rows}
	if _, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do(); err != nil {
		return fmt.Errorf("append %s: %w", rng, err)
	}
	return nil
}

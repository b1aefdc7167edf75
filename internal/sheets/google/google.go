package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"splitkasse/internal/core"
	ports "splitkasse/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Archive columns: Period | Balance start | Balance end | Transfers | Closed at | Month ID
const archiveColumns = "A:F"

var (
	_ ports.ArchiveWriter = (*Client)(nil)
	_ ports.ArchiveReader = (*Client)(nil)
)

// Options configures the archive client.
type Options struct {
	SpreadsheetID string
	// SheetName is the base name without year (e.g. "Archive"); the closed
	// month's year is prefixed automatically.
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	archiveBase   string
}

// New creates a Sheets client authenticated with service account
// credentials. GOOGLE_APPLICATION_CREDENTIALS is used when neither inline
// JSON nor a file is configured.
func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	base := strings.TrimSpace(opts.SheetName)
	if base == "" {
		base = "Archive"
	}

	credentials, err := loadCredentials(ctx, opts)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets archive client created", "sheet", base)
	return &Client{svc: svc, spreadsheetID: spreadsheetID, archiveBase: base}, nil
}

func loadCredentials(ctx context.Context, opts Options) ([]byte, error) {
	inline := strings.TrimSpace(opts.CredentialsJSON)
	file := strings.TrimSpace(opts.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		return []byte(inline), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_CREDENTIALS_JSON, GOOGLE_CREDENTIALS_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// AppendClosedMonth writes the month's archive row to the year's sheet. A
// month that is already archived has its row overwritten.
func (c *Client) AppendClosedMonth(ctx context.Context, summary core.ClosedMonthSummary) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	sheet := c.sheetName(summary.Year)
	row := archiveRow(summary)

	rng := fmt.Sprintf("%s!%s", sheet, archiveColumns)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", rng, err)
	}

	if existing := findMonthRow(resp.Values, summary.MonthID); existing > 0 {
		target := fmt.Sprintf("%s!A%d:F%d", sheet, existing, existing)
		_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, target, &gsheet.ValueRange{Values: [][]any{row}}).
			ValueInputOption("USER_ENTERED").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("update %s: %w", target, err)
		}
		slog.InfoContext(ctx, "Updated archived month", "sheet", sheet, "row", existing, "month_id", summary.MonthID)
		return nil
	}

	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{row}}).
		ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", sheet, err)
	}
	slog.InfoContext(ctx, "Archived closed month", "sheet", sheet, "month_id", summary.MonthID)
	return nil
}

// ListArchived reads back the archive rows of one year.
func (c *Client) ListArchived(ctx context.Context, year int) ([]core.ClosedMonthSummary, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!%s", c.sheetName(year), archiveColumns)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseArchiveRows(resp.Values), nil
}

func (c *Client) sheetName(year int) string {
	return yearPrefixedName(c.archiveBase, year)
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

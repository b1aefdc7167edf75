package commands

import (
	"context"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"splitkasse/internal/core"
	"splitkasse/internal/export"
	"splitkasse/internal/storage"
)

const maxArchiveLimit = 120

func parseDelimiter(s string) (rune, error) {
	if s == `\t` || s == "tab" {
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || size != len(s) || r == '"' || r == '\n' || r == '\r' {
		return 0, fmt.Errorf("invalid delimiter %q", s)
	}
	return r, nil
}

// writeTo writes to path, or to stdout when path is empty or "-".
func writeTo(cmd *cobra.Command, path string, write func(io.Writer) error) error {
	if path == "" || path == "-" {
		return write(cmd.OutOrStdout())
	}
	if err := export.WriteFile(path, write); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", path)
	return nil
}

func newArchiveCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Inspect and export closed months",
	}
	cmd.AddCommand(newArchiveListCommand(flags), newArchiveExportCommand(flags))
	return cmd
}

func loadClosedMonths(cmd *cobra.Command, flags *globalFlags, limit int) ([]core.ClosedMonthSummary, error) {
	if limit < 1 || limit > maxArchiveLimit {
		return nil, fmt.Errorf("limit must be between 1 and %d", maxArchiveLimit)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, repo, err := openService(ctx, cmd, flags)
	if err != nil {
		return nil, err
	}
	defer repo.Close()
	return svc.ClosedMonths(ctx, limit)
}

func newArchiveListCommand(flags *globalFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List closed months, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			months, err := loadClosedMonths(cmd, flags, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(months) == 0 {
				fmt.Fprintln(out, "no closed months")
				return nil
			}
			for _, m := range months {
				fmt.Fprintf(out, "%04d-%02d  start %s  end %s  transfers %s  closed %s\n",
					m.Year, m.Month,
					core.FormatEuros(m.PrivateBalanceStart),
					core.FormatEuros(m.PrivateBalanceEnd),
					core.FormatEuros(m.TotalTransfers),
					m.ClosedAt.UTC().Format(time.DateOnly))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 12, "number of months to list")
	return cmd
}

func newArchiveExportCommand(flags *globalFlags) *cobra.Command {
	var (
		limit     int
		out       string
		delimiter string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export closed months as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			comma, err := parseDelimiter(delimiter)
			if err != nil {
				return err
			}
			months, err := loadClosedMonths(cmd, flags, limit)
			if err != nil {
				return err
			}
			return writeTo(cmd, out, func(w io.Writer) error {
				return export.WriteClosedMonths(w, months, comma)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", maxArchiveLimit, "number of months to export")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&delimiter, "delimiter", ",", "CSV field delimiter")
	return cmd
}

func newHistoryCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Month activity feed",
	}
	cmd.AddCommand(newHistoryExportCommand(flags))
	return cmd
}

func newHistoryExportCommand(flags *globalFlags) *cobra.Command {
	var (
		monthID   int64
		out       string
		delimiter string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every position of a month as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			comma, err := parseDelimiter(delimiter)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			svc, repo, err := openService(ctx, cmd, flags)
			if err != nil {
				return err
			}
			defer repo.Close()

			id, err := resolveMonth(ctx, svc, monthID)
			if err != nil {
				return err
			}
			history, err := svc.History(ctx, id, true)
			if err != nil {
				return err
			}
			return writeTo(cmd, out, func(w io.Writer) error {
				return export.WriteHistory(w, nonNil(history.Full), comma)
			})
		},
	}
	cmd.Flags().Int64Var(&monthID, "month", 0, "month id (default current month)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&delimiter, "delimiter", ",", "CSV field delimiter")
	return cmd
}

// nonNil keeps an empty month exportable; WriteHistory rejects nil.
func nonNil(positions []core.HistoryPosition) []core.HistoryPosition {
	if positions == nil {
		return []core.HistoryPosition{}
	}
	return positions
}

type monthResolver interface {
	CurrentMonth(ctx context.Context) (storage.Month, error)
}

func resolveMonth(ctx context.Context, svc monthResolver, monthID int64) (int64, error) {
	if monthID > 0 {
		return monthID, nil
	}
	if monthID < 0 {
		return 0, fmt.Errorf("invalid month id %d", monthID)
	}
	m, err := svc.CurrentMonth(ctx)
	if err != nil {
		return 0, err
	}
	return m.ID, nil
}

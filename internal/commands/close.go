package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"splitkasse/internal/core"
)

func newCloseCommand(flags *globalFlags) *cobra.Command {
	var monthID int64

	cmd := &cobra.Command{
		Use:   "close",
		Short: "Close a month and store its ending balance",
		Long: "Close settles the month (the current one unless --month is given),\n" +
			"stores its ending balance and makes it read-only. The next month\n" +
			"starts from that balance.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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
			closed, computed, err := svc.CloseMonth(ctx, id)
			if err != nil {
				return fmt.Errorf("closing month %d: %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "closed %04d-%02d: balance end %s, recommended prepayment %s\n",
				closed.Year, closed.Month,
				core.FormatEuros(computed.PrivateBalanceEnd),
				core.FormatEuros(computed.RecommendedPrepayment))
			return nil
		},
	}
	cmd.Flags().Int64Var(&monthID, "month", 0, "month id (default current month)")
	return cmd
}

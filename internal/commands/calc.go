package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"splitkasse/internal/core"
)

const (
	formatText = "text"
	formatJSON = "json"
)

func validateFormat(format string) error {
	switch format {
	case formatText, formatJSON:
		return nil
	}
	return fmt.Errorf("unknown format %q (want text or json)", format)
}

func newCalcCommand() *cobra.Command {
	var file, format string

	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Settle one month described in a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			var m monthFile
			if err := readYAMLFile(file, &m); err != nil {
				return err
			}
			in, err := m.toInputs(nil, nil)
			if err != nil {
				return err
			}
			computed := core.CalculateMonth(in)

			out := cmd.OutOrStdout()
			if format == formatJSON {
				return writeJSON(out, computed)
			}
			return writeComputed(out, m.Label, computed)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "month file (required)")
	_ = cmd.MarkFlagRequired("file")
	cmd.Flags().StringVar(&format, "format", formatText, "output format: text or json")
	return cmd
}

type chainResult struct {
	Label    string             `json:"label,omitempty"`
	Computed core.MonthComputed `json:"computed"`
}

func newChainCommand() *cobra.Command {
	var file, format string

	cmd := &cobra.Command{
		Use:   "chain",
		Short: "Settle consecutive months, carrying each ending balance forward",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			var c chainFile
			if err := readYAMLFile(file, &c); err != nil {
				return err
			}
			if len(c.Months) == 0 {
				return fmt.Errorf("%s: no months", file)
			}

			inputs := make([]core.MonthInputs, 0, len(c.Months))
			for i, m := range c.Months {
				in, err := m.toInputs(c.Me, c.Partner)
				if err != nil {
					return fmt.Errorf("month %d: %w", i+1, err)
				}
				inputs = append(inputs, in)
			}

			computed := core.Chain(core.Money(c.Start), inputs)
			results := make([]chainResult, len(computed))
			for i := range computed {
				label := c.Months[i].Label
				if label == "" {
					label = "month " + strconv.Itoa(i+1)
				}
				results[i] = chainResult{Label: label, Computed: computed[i]}
			}

			out := cmd.OutOrStdout()
			if format == formatJSON {
				return writeJSON(out, results)
			}
			for i, r := range results {
				if i > 0 {
					fmt.Fprintln(out)
				}
				if err := writeComputed(out, r.Label, r.Computed); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "chain file (required)")
	_ = cmd.MarkFlagRequired("file")
	cmd.Flags().StringVar(&format, "format", formatText, "output format: text or json")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func percent(share float64) string {
	return strconv.FormatFloat(share*100, 'f', 2, 64) + "%"
}

func writeComputed(w io.Writer, label string, c core.MonthComputed) error {
	if label != "" {
		fmt.Fprintf(w, "== %s ==\n", label)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"Share me", percent(c.ShareMe)},
		{"Share partner", percent(c.SharePartner)},
		{"Total fixed costs", core.FormatEuros(c.TotalFixedCosts)},
		{"My fixed share", core.FormatEuros(c.MyFixedShare)},
		{"Private added", core.FormatEuros(c.PrivateAddedThisMonth)},
		{"Balance start", core.FormatEuros(c.PrivateBalanceStart)},
		{"Fixed cost due", core.FormatEuros(c.FixedCostDue)},
		{"Prepayment", core.FormatEuros(c.PrepaymentThisMonth)},
		{"Shortfall", core.FormatEuros(c.FixedCostShortfall)},
		{"Overpayment", core.FormatEuros(c.FixedCostOverpayment)},
		{"Total due before prepayment", core.FormatEuros(c.PrivateTotalDueBeforePrepayment)},
		{"Balance end", core.FormatEuros(c.PrivateBalanceEnd)},
		{"Recommended prepayment", core.FormatEuros(c.RecommendedPrepayment)},
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", r[0], r[1])
	}
	return tw.Flush()
}

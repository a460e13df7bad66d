package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/sus-cli/internal/api"
	"github.com/khanhnv2901/sus-cli/internal/domain/scan"
)

type scanOptions struct {
	JSON   bool
	FailOn scan.Verdict
}

var scanCmd = &cobra.Command{
	Use:   "scan <url>",
	Short: "Scan a URL and print its risk score",
	Long: `Run every detector against a URL and print the combined score,
verdict and per-detector results. URLs without a scheme are treated as https.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		asJSON, _ := cmd.Flags().GetBool("json")
		failOn, _ := cmd.Flags().GetString("fail-on")

		threshold, err := parseFailOn(failOn)
		if err != nil {
			return err
		}

		scanner, err := appCtx.scanner(cmd.Context())
		if err != nil {
			return err
		}
		return runScan(cmd.Context(), cmd.OutOrStdout(), scanner, args[0], scanOptions{JSON: asJSON, FailOn: threshold})
	},
}

func runScan(ctx context.Context, out io.Writer, scanner api.Scanner, rawURL string, opts scanOptions) error {
	report, err := scanner.Scan(ctx, rawURL)
	if err != nil {
		return err
	}

	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
	} else if err := printReport(out, report); err != nil {
		return err
	}

	if opts.FailOn != "" && verdictRank(report.Verdict) >= verdictRank(opts.FailOn) {
		return &VerdictError{URL: report.URL, Verdict: report.Verdict}
	}
	return nil
}

func printReport(out io.Writer, report *scan.Report) error {
	fmt.Fprintf(out, "%s %s\n", colorInfo("→"), report.URL)
	fmt.Fprintf(out, "  Score: %s\n\n", formatScore(report.Score, report.Verdict))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, check := range report.Checks {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", check.Name, formatStatusWithColor(string(check.Status)), check.Detail)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	counts := report.Counts()
	fmt.Fprintf(out, "\n  %d pass, %d warn, %d fail\n",
		counts[scan.StatusPass], counts[scan.StatusWarn], counts[scan.StatusFail])
	return nil
}

func init() {
	scanCmd.Flags().Bool("json", false, "Print the report as JSON")
	scanCmd.Flags().String("fail-on", "none", "Exit non-zero when the verdict is at least this severe (caution, danger, none)")
	addConfigFlags(scanCmd)
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/theirongolddev/curstat/internal/cli"
	"github.com/theirongolddev/curstat/internal/cursorapi"
	"github.com/theirongolddev/curstat/internal/token"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show premium quota and usage-based spend",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfg := loadConfig()
	log := newLogger()

	orch, _, err := buildStack(cfg, log)
	if err != nil {
		return err
	}

	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Fetching usage data...\n")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	bundle, err := orch.RunCycle(ctx)
	if err != nil {
		return describeFetchError(err)
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("CURSOR USAGE"))
	fmt.Println()

	// Premium request quota
	quotaRows := [][]string{}
	if bundle.Premium.Limit > 0 {
		quotaRows = append(quotaRows, []string{
			"Premium requests",
			fmt.Sprintf("%s / %s",
				cli.FormatNumber(int64(bundle.Premium.Current)),
				cli.FormatNumber(int64(bundle.Premium.Limit))),
			cli.RenderQuotaBar(float64(bundle.PremiumPercent)/100, 20),
			bundle.PremiumRemaining + "% left",
		})
	} else {
		quotaRows = append(quotaRows, []string{
			"Premium requests",
			cli.FormatNumber(int64(bundle.Premium.Current)),
			"", "no limit",
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Quota",
		Headers: []string{"Window", "Used", "Bar", "Remaining"},
		Rows:    quotaRows,
	}))

	// Usage-based pricing
	ubRows := [][]string{}
	status := "disabled"
	if bundle.UsageBased.Enabled {
		status = "enabled"
	}
	ubRows = append(ubRows, []string{"Usage-based pricing", status})
	ubRows = append(ubRows, []string{"Spend", cli.FormatCost(bundle.ActualDollars)})
	if bundle.MidMonthDollars > 0 {
		ubRows = append(ubRows, []string{"Mid-month paid", cli.FormatCost(bundle.MidMonthDollars)})
	}
	if bundle.UsageBased.LimitDollars != nil {
		ubRows = append(ubRows, []string{"Monthly limit", cli.FormatCost(*bundle.UsageBased.LimitDollars)})
		ubRows = append(ubRows, []string{"Utilization", fmt.Sprintf("%.1f%%", bundle.UsageBasedPct)})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Spend · " + cli.FormatPeriod(bundle.ActivePeriod),
		Headers: []string{"Setting", "Value"},
		Rows:    ubRows,
	}))

	if bundle.ActiveFallback {
		fmt.Println("  " + cli.RenderWarning("Current cycle has no usage yet, showing previous cycle."))
	}
	if bundle.Active().HasUnpaidMidMonthInvoice {
		fmt.Println("  " + cli.RenderWarning("You have an unpaid mid-month invoice."))
	}

	fmt.Printf("\n  Fetched at %s\n\n", bundle.FetchedAt.Format("3:04:05 PM"))
	return nil
}

func describeFetchError(err error) error {
	switch {
	case errors.Is(err, cursorapi.ErrUnauthorized):
		return errors.New("session token rejected: sign in to Cursor again or run `curstat setup`")
	case errors.Is(err, cursorapi.ErrRateLimited):
		return errors.New("rate limited by cursor.com: try again in a minute")
	case errors.Is(err, token.ErrNoToken):
		return errors.New("no session token found: run `curstat setup` or pass --token")
	default:
		return fmt.Errorf("fetch failed: %w", err)
	}
}

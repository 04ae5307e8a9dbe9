package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/theirongolddev/curstat/internal/cli"
	"github.com/theirongolddev/curstat/internal/model"

	"github.com/spf13/cobra"
)

var flagUsagePrevious bool

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show the per-model usage breakdown for the billing cycle",
	RunE:  runUsage,
}

func init() {
	usageCmd.Flags().BoolVar(&flagUsagePrevious, "previous", false, "Show the previous billing cycle")
	rootCmd.AddCommand(usageCmd)
}

func runUsage(_ *cobra.Command, _ []string) error {
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

	usage := bundle.Active()
	period := bundle.ActivePeriod
	if flagUsagePrevious {
		usage = bundle.Previous
		period = model.BillingPeriod{Month: usage.Month, Year: usage.Year}
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("USAGE · " + cli.FormatPeriod(period)))
	fmt.Println()

	if len(usage.Items) == 0 {
		fmt.Println("  No billable usage in this cycle.")
		fmt.Println()
		return nil
	}

	rows := make([][]string, 0, len(usage.Items)+2)
	for _, r := range cli.ItemRows(usage.Items) {
		rows = append(rows, []string{r.Model, r.Requests, r.UnitCost, r.Total})
	}
	rows = append(rows, []string{"---"})
	rows = append(rows, []string{"Total", "", "", cli.FormatCents(usage.ActualTotalCents())})
	if usage.MidMonthPaymentCents > 0 {
		rows = append(rows, []string{"Mid-month paid", "", "", cli.FormatCents(usage.MidMonthPaymentCents)})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Model", "Requests", "Unit", "Cost"},
		Rows:    rows,
	}))

	if usage.HasUnpaidMidMonthInvoice {
		fmt.Println("  " + cli.RenderWarning("You have an unpaid mid-month invoice."))
	}
	if !flagUsagePrevious && bundle.ActiveFallback {
		fmt.Println("  " + cli.RenderWarning("Current cycle has no usage yet, showing previous cycle."))
	}
	fmt.Println()

	return nil
}

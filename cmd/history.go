package cmd

import (
	"fmt"

	"github.com/theirongolddev/curstat/internal/cli"
	"github.com/theirongolddev/curstat/internal/config"
	"github.com/theirongolddev/curstat/internal/store"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded usage snapshots",
	RunE:  runHistory,
}

var flagHistoryLimit int

func init() {
	historyCmd.Flags().IntVarP(&flagHistoryLimit, "limit", "n", 20, "number of snapshots to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(_ *cobra.Command, _ []string) error {
	hist, err := store.Open(config.HistoryPath())
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer func() { _ = hist.Close() }()

	snaps, err := hist.Recent(flagHistoryLimit)
	if err != nil {
		return fmt.Errorf("reading history: %w", err)
	}
	if len(snaps) == 0 {
		fmt.Println("\n  No snapshots recorded yet. Run `curstat daemon` or `curstat monitor` to collect some.")
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("SNAPSHOT HISTORY  Last %d", len(snaps))))
	fmt.Println()

	rows := make([][]string, 0, len(snaps))
	for _, s := range snaps {
		premium := fmt.Sprintf("%d / %d", s.PremiumCurrent, s.PremiumLimit)
		if s.PremiumLimit <= 0 {
			premium = cli.FormatNumber(int64(s.PremiumCurrent))
		}
		flags := ""
		if s.UnpaidInvoice {
			flags = "unpaid"
		}
		rows = append(rows, []string{
			s.FetchedAt.Local().Format("2006-01-02 15:04"),
			premium,
			s.PremiumRemaining + "%",
			cli.FormatCents(s.ActualTotalCents),
			fmt.Sprintf("%d", s.ItemCount),
			flags,
		})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Fetched", "Premium", "Left", "Spend", "Items", "Flags"},
		Rows:    rows,
	}))

	// Oldest to newest so the sparkline reads left to right.
	spend := make([]float64, 0, len(snaps))
	for i := len(snaps) - 1; i >= 0; i-- {
		spend = append(spend, float64(snaps[i].ActualTotalCents)/100)
	}
	if len(spend) > 1 {
		first := snaps[len(snaps)-1].FetchedAt.Local().Format("Jan 2")
		last := snaps[0].FetchedAt.Local().Format("Jan 2")
		fmt.Printf("\n  Spend %s  %s to %s\n", cli.RenderSparkline(spend), first, last)
	}
	fmt.Println()

	return nil
}

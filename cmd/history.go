package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jfmyers9/tuner/internal/history"
	"github.com/spf13/cobra"
)

var historyLimit int

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently played stations",
	Long: `Show the listening log, newest first.

Each entry is one continuous stretch of a station being on air.
Entries without an end time are still playing (or the radio was
killed before it could record the end).`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries to show (0 for all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		return fmt.Errorf("failed to open listening history: %w", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	listens, err := store.Recent(ctx, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to read listening history: %w", err)
	}

	writeHistory(cmd.OutOrStdout(), listens)
	return nil
}

func writeHistory(w io.Writer, listens []history.Listen) {
	if len(listens) == 0 {
		fmt.Fprintln(w, "No listening history yet")
		return
	}

	rows := [][]string{{"STARTED", "STATION", "DURATION", "NOTE"}}
	for _, l := range listens {
		duration := "playing"
		if !l.Active() {
			duration = formatDuration(l.Duration())
		}
		rows = append(rows, []string{
			l.StartedAt.Local().Format("2006-01-02 15:04"),
			l.StationName,
			duration,
			l.Error,
		})
	}

	fmt.Fprint(w, table(rows, 0, 28))
}

// formatDuration formats a duration as MM:SS or H:MM:SS for longer durations
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

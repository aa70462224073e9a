package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jfmyers9/tuner/internal/audio"
	"github.com/jfmyers9/tuner/internal/discord"
	"github.com/jfmyers9/tuner/internal/history"
	"github.com/jfmyers9/tuner/internal/transport"
	"github.com/jfmyers9/tuner/internal/tui"
	"github.com/spf13/cobra"
)

// Listens older than this are pruned at startup
const historyRetention = 90 * 24 * time.Hour

var (
	noAudio   bool
	noHistory bool
)

// playCmd represents the play command
var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Start the radio",
	Long: `Start the radio in the terminal.

The radio starts paused on the first station with volume at 50%.
Nothing is remembered between sessions.

Keys:
  space     play / pause
  n, →      next station
  p, ←      previous station
  m         mute / unmute
  +, -      volume up / down by 5%
  0-9       set volume level (0 silent, 9 full)
  t         next theme
  q, esc    quit

While the radio is on screen, logs go to a file (see --log-file).`,
	RunE: runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)
	addPlayFlags(playCmd)
}

func addPlayFlags(c *cobra.Command) {
	c.Flags().BoolVar(&noAudio, "no-audio", false, "Run without audio output")
	c.Flags().BoolVar(&noHistory, "no-history", false, "Do not record listening history")
}

func runPlay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The TUI owns the terminal, so never log to stderr here
	logger := setupLogger(cfg.LogPath(), cfg.LogLevel)

	logger.Info().
		Str("version", version).
		Msg("Starting tuner")

	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	var output audio.Output = audio.Discard{}
	var stream *audio.StreamOutput
	if !noAudio {
		stream = audio.NewStreamOutput(logger)
		output = stream
	}

	ctrl := transport.New(cat, output, transport.Config{
		SwapDelay:   cfg.Tuning.SwapDelay,
		SettleDelay: cfg.Tuning.SettleDelay,
		Clock:       transport.RealClock(),
	}, logger)
	if stream != nil {
		stream.SetReporter(ctrl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	var store *history.Store

	if cfg.History.Enabled && !noHistory {
		store, err = history.Open(cfg.HistoryPath())
		if err != nil {
			// History is a convenience; the radio works without it
			logger.Warn().Err(err).Str("path", cfg.HistoryPath()).Msg("Listening history disabled")
		} else {
			if n, err := store.Cleanup(ctx, historyRetention); err != nil {
				logger.Warn().Err(err).Msg("Failed to prune listening history")
			} else if n > 0 {
				logger.Debug().Int64("deleted", n).Msg("Pruned listening history")
			}

			recorder := history.NewRecorder(store, logger)
			if _, err := ctrl.Subscribe(recorder.Observe); err != nil {
				return fmt.Errorf("failed to subscribe history: %w", err)
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = recorder.Run(ctx)
			}()
		}
	}

	if cfg.Discord.AppID != "" {
		snapshots, unsubscribe, err := ctrl.Latest()
		if err != nil {
			return fmt.Errorf("failed to subscribe presence: %w", err)
		}
		defer unsubscribe()

		presence := discord.New(cfg.Discord.AppID, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			presence.Run(ctx, snapshots)
		}()
	}

	snapshots, unsubscribe, err := ctrl.Latest()
	if err != nil {
		return fmt.Errorf("failed to subscribe display: %w", err)
	}

	app := tui.New(ctrl, tui.Config{RefreshRate: cfg.UI.RefreshRate})
	runErr := app.Run(ctx, snapshots)
	unsubscribe()

	// Stop background consumers, then the controller and audio
	stop()
	wg.Wait()

	_ = ctrl.Close()
	if stream != nil {
		if err := stream.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close audio output")
		}
	}
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close listening history")
		}
	}

	logger.Info().Msg("tuner stopped")
	return runErr
}

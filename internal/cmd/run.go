package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/melodydashora/Vecto-Pilot-sub003/internal/event"
	"github.com/melodydashora/Vecto-Pilot-sub003/internal/lock"
	"github.com/melodydashora/Vecto-Pilot-sub003/internal/logging"
	"github.com/melodydashora/Vecto-Pilot-sub003/internal/provider"
	"github.com/melodydashora/Vecto-Pilot-sub003/internal/store"
	"github.com/melodydashora/Vecto-Pilot-sub003/internal/strategy"
)

var runCmd = &cobra.Command{
	Use:   "run <snapshot-id>",
	Short: "Run the strategy pipeline for a snapshot",
	Long: `Run takes a snapshot through the full pipeline: context gathering,
tactical synthesis, and candidate ranking. If another worker is already
processing the same snapshot the call yields to it and reports the
in-flight status.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	snapshotID := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer log.Close()

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	bus := event.NewBus()
	router, err := provider.FromConfig(cfg, bus, log)
	if err != nil {
		return err
	}
	locks := lock.NewManager(st, lock.Options{
		TTL:          cfg.Lock.TTL,
		AcquireWait:  cfg.Lock.AcquireWait,
		PollInterval: cfg.Lock.PollInterval,
	}, log)

	orch := strategy.New(st, locks, router, bus, log, strategy.Options{
		StaleAfter:         cfg.Lock.StaleAfter,
		NewsWindowDays:     cfg.Briefing.NewsWindowDays,
		MaxCandidates:      cfg.Candidates.Max,
		MaxNameLength:      cfg.Candidates.MaxNameLength,
		MaxRationaleLength: cfg.Candidates.MaxRationaleLength,
	})

	res, err := orch.Run(cmd.Context(), snapshotID)
	if err != nil {
		return err
	}
	if res.Deduplicated {
		fmt.Printf("Snapshot %s is already being processed (status: %s)\n", res.SnapshotID, res.Status)
		return nil
	}
	fmt.Printf("Snapshot: %s\n", res.SnapshotID)
	fmt.Printf("Status: %s\n", res.Status)
	if res.RankingID != "" {
		fmt.Printf("Ranking: %s (%d candidates)\n", res.RankingID, res.Candidates)
	}
	return nil
}

package cmd

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/melodydashora/Vecto-Pilot-sub003/internal/store"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage location snapshots",
}

var snapshotSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert a snapshot so the pipeline can be exercised locally",
	Long: `Seed writes a snapshot row directly into the database and prints its id.
In production snapshots arrive through the intake service; seed exists for
local end-to-end runs.`,
	RunE: runSnapshotSeed,
}

var seedFlags struct {
	lat      float64
	lng      float64
	address  string
	timezone string
	weather  string
}

func init() {
	snapshotSeedCmd.Flags().Float64Var(&seedFlags.lat, "lat", 32.7767, "latitude")
	snapshotSeedCmd.Flags().Float64Var(&seedFlags.lng, "lng", -96.7970, "longitude")
	snapshotSeedCmd.Flags().StringVar(&seedFlags.address, "address", "Dallas, TX", "formatted address")
	snapshotSeedCmd.Flags().StringVar(&seedFlags.timezone, "timezone", "America/Chicago", "IANA timezone")
	snapshotSeedCmd.Flags().StringVar(&seedFlags.weather, "weather", `{"condition": "Clear"}`, "weather JSON document")

	snapshotCmd.AddCommand(snapshotSeedCmd)
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshotSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	now := time.Now()
	local := now
	if loc, err := time.LoadLocation(seedFlags.timezone); err == nil {
		local = now.In(loc)
	}

	snap := store.Snapshot{
		SnapshotID:       uuid.NewString(),
		Latitude:         seedFlags.lat,
		Longitude:        seedFlags.lng,
		FormattedAddress: seedFlags.address,
		LocalTime:        local.Format("2006-01-02 15:04"),
		Timezone:         seedFlags.timezone,
		DayOfWeek:        local.Weekday().String(),
		WeatherJSON:      seedFlags.weather,
		CreatedAt:        now,
	}
	if err := st.InsertSnapshot(cmd.Context(), snap); err != nil {
		return err
	}
	fmt.Println(snap.SnapshotID)
	return nil
}

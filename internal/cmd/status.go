package cmd

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	apperrors "github.com/melodydashora/Vecto-Pilot-sub003/internal/errors"
	"github.com/melodydashora/Vecto-Pilot-sub003/internal/phase"
	"github.com/melodydashora/Vecto-Pilot-sub003/internal/store"
	"github.com/melodydashora/Vecto-Pilot-sub003/internal/strategy"
	"github.com/melodydashora/Vecto-Pilot-sub003/internal/util"
)

var statusCmd = &cobra.Command{
	Use:   "status <snapshot-id>",
	Short: "Show pipeline progress and results for a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func statusStyle(status string) lipgloss.Style {
	switch status {
	case strategy.StatusOK:
		return okStyle
	case strategy.StatusPartial, strategy.StatusRunning, strategy.StatusPending:
		return warnStyle
	default:
		return errStyle
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	snapshotID := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	row, err := st.GetStrategy(ctx, snapshotID)
	if apperrors.Is(err, apperrors.ErrStrategyNotFound) {
		fmt.Printf("No run recorded for snapshot %s\n", snapshotID)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Println(headerStyle.Render("Snapshot " + row.SnapshotID))
	fmt.Printf("%s %s\n", labelStyle.Render("Status:"), statusStyle(row.Status).Render(row.Status))
	fmt.Printf("%s %s\n", labelStyle.Render("Phase:"), row.Phase.String())
	if !row.Phase.IsTerminal() {
		elapsed := time.Since(row.PhaseStartedAt).Round(time.Second)
		expected := phase.ExpectedDuration(row.Phase)
		fmt.Printf("%s %s in phase (typically ~%s)\n", labelStyle.Render("Elapsed:"), elapsed, expected)
	}
	if row.ErrorStage != "" {
		fmt.Printf("%s [%s] %s\n", labelStyle.Render("Error:"), row.ErrorStage, errStyle.Render(row.ErrorMessage))
	}
	if row.ImmediateStrategy != "" {
		fmt.Printf("\n%s\n%s\n", headerStyle.Render("Right now"), row.ImmediateStrategy)
	}
	if row.ExtendedStrategy != "" {
		fmt.Printf("\n%s\n%s\n", headerStyle.Render("Next few hours"), row.ExtendedStrategy)
	}

	ranking, candidates, err := st.GetRanking(ctx, snapshotID)
	if apperrors.Is(err, apperrors.ErrRankingNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("\n%s (%s via %s, %dms)\n", headerStyle.Render("Where to stage"),
		ranking.Model, ranking.Provider, ranking.ElapsedMs)
	for _, c := range candidates {
		grade := okStyle
		if c.Grade == "C" || c.Grade == "D" {
			grade = warnStyle
		} else if c.Grade == "F" {
			grade = errStyle
		}
		fmt.Printf("%2d. %s %s  $%.2f/min, %.0f min away\n",
			c.Position, grade.Render("["+c.Grade+"]"), c.Name, c.ValuePerMin, c.DriveMinutes)
		if c.Rationale != "" {
			fmt.Printf("      %s\n", labelStyle.Render(util.ClampLine(c.Rationale, 100)))
		}
	}
	return nil
}

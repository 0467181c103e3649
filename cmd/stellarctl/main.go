package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	cl "github.com/mungus451/Stellar-Dominion-Game-sub003/internal/cli"
	"github.com/mungus451/Stellar-Dominion-Game-sub003/internal/config"
	"github.com/mungus451/Stellar-Dominion-Game-sub003/internal/db"
	"github.com/mungus451/Stellar-Dominion-Game-sub003/internal/game"
)

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	warn    = color.New(color.FgYellow, color.Bold)
	danger  = color.New(color.FgRed, color.Bold)
)

func main() {
	cfg := config.LoadCLIFromEnv()

	root := &cobra.Command{
		Use:          "stellarctl",
		Short:        "Stellar Dominion ops and player CLI",
		SilenceUsage: true,
	}

	root.AddCommand(
		newAuthCmd(),
		newLogoutCmd(),
		newAccountCmd(&cfg),
		newMissionCmd(&cfg),
		newSweepCmd(&cfg),
	)

	if err := root.Execute(); err != nil {
		danger.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(cfg *config.CLIConfig) *cl.Client {
	return cl.NewClient(cfg.APIBaseURL)
}

func newAuthCmd() *cobra.Command {
	var accountID int64
	cmd := &cobra.Command{
		Use:   "auth <token>",
		Short: "Store a session token issued by the session gateway",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.SaveSession(cl.Session{Token: strings.TrimSpace(args[0]), AccountID: accountID}); err != nil {
				return err
			}
			success.Println("session saved")
			return nil
		},
	}
	cmd.Flags().Int64Var(&accountID, "account-id", 0, "account id hint stored alongside the token")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearSession(); err != nil {
				return err
			}
			success.Println("session cleared")
			return nil
		},
	}
}

func newAccountCmd(cfg *config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "account",
		Short: "Show the acting account's derived stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return err
			}
			overview, err := newClient(cfg).Account(cmd.Context(), sess.Token)
			if err != nil {
				return err
			}
			accent.Printf("account #%d  level %d  xp %d\n", overview.AccountID, overview.Level, overview.Experience)
			fmt.Printf("  credits          %d (banked %d)\n", overview.Credits, overview.BankedCredits)
			fmt.Printf("  attack turns     %d\n", overview.AttackTurns)
			fmt.Printf("  offense power    %d\n", overview.OffensePower)
			fmt.Printf("  defense power    %d\n", overview.DefensePower)
			fmt.Printf("  spy offense      %d\n", overview.SpyOffense)
			fmt.Printf("  sentry defense   %d\n", overview.SentryDefense)
			fmt.Printf("  income per turn  %d credits, %d citizens\n", overview.IncomePerTurn, overview.CitizensPerTurn)
			return nil
		},
	}
}

func newMissionCmd(cfg *config.CLIConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mission",
		Short: "Run and inspect espionage missions",
	}
	cmd.AddCommand(newMissionRunCmd(cfg), newMissionListCmd(cfg), newMissionShowCmd(cfg))
	return cmd
}

func newMissionRunCmd(cfg *config.CLIConfig) *cobra.Command {
	var in cl.MissionInput
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Resolve one mission against a defender",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return err
			}
			result, err := newClient(cfg).ResolveMission(cmd.Context(), sess.Token, in)
			if err != nil {
				return err
			}
			if result.Success {
				success.Printf("%s succeeded", result.Type)
				if result.Critical {
					warn.Print("  (critical)")
				}
				fmt.Println()
			} else {
				danger.Printf("%s failed\n", result.Type)
			}
			fmt.Printf("  mission id      %s\n", result.MissionID)
			fmt.Printf("  powers          %d vs %d\n", result.AttackerPower, result.DefenderPower)
			fmt.Printf("  turns spent     %d\n", result.TurnsSpent)
			if result.CreditsSpent > 0 {
				fmt.Printf("  credits spent   %d\n", result.CreditsSpent)
			}
			if result.UnitsKilled > 0 {
				fmt.Printf("  units converted %d\n", result.UnitsKilled)
			}
			if result.StructDamage > 0 {
				fmt.Printf("  damage dealt    %d\n", result.StructDamage)
			}
			fmt.Printf("  xp              +%d you, +%d them\n", result.AttackerXP, result.DefenderXP)
			if result.Intel != nil {
				accent.Println("  intel:")
				for _, fact := range result.Intel.Facts {
					fmt.Printf("    %-16s %d\n", fact.Name, fact.Value)
				}
			}
			if result.Sabotage != nil {
				accent.Printf("  sabotage: %s mode, %d%%\n", result.Sabotage.Mode, result.Sabotage.Percent)
				for _, item := range result.Sabotage.Items {
					fmt.Printf("    %-16s %d -> %d\n", item.ItemKey, item.Before, item.After)
				}
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&in.DefenderID, "defender", 0, "defender account id")
	cmd.Flags().StringVar(&in.MissionType, "type", "intelligence", "mission type (intelligence|assassination|sabotage|total_sabotage)")
	cmd.Flags().IntVar(&in.Turns, "turns", 1, "attack turns to spend (1-10)")
	cmd.Flags().StringVar(&in.TargetUnit, "target-unit", "", "assassination target (workers|soldiers|guards)")
	cmd.Flags().StringVar(&in.Mode, "mode", "", "total sabotage mode (structure|loadout)")
	cmd.Flags().StringVar(&in.TargetStructure, "target-structure", "", "structure key for structure mode")
	cmd.Flags().StringVar(&in.TargetCategory, "target-category", "", "loadout category for loadout mode")
	_ = cmd.MarkFlagRequired("defender")
	return cmd
}

func newMissionListCmd(cfg *config.CLIConfig) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent missions involving the acting account",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return err
			}
			logs, err := newClient(cfg).Missions(cmd.Context(), sess.Token, limit)
			if err != nil {
				return err
			}
			if len(logs) == 0 {
				fmt.Println("no missions yet")
				return nil
			}
			for _, m := range logs {
				verdict := danger.Sprint("failed")
				if m.Success {
					verdict = success.Sprint("success")
				}
				fmt.Printf("%s  %-14s  %d -> %d  %s  %s\n",
					m.CreatedAt.Format(time.RFC3339), m.Type, m.AttackerID, m.DefenderID, verdict, m.ID)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 25, "max rows")
	return cmd
}

func newMissionShowCmd(cfg *config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:     "show <mission-id>",
		Aliases: []string{"intel"},
		Short:   "Show one mission log, including intel if you ran it",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return err
			}
			m, err := newClient(cfg).Mission(cmd.Context(), sess.Token, args[0])
			if err != nil {
				return err
			}
			accent.Printf("%s  %s\n", m.ID, m.Type)
			fmt.Printf("  attacker %d vs defender %d\n", m.AttackerID, m.DefenderID)
			fmt.Printf("  success %v  powers %d vs %d\n", m.Success, m.AttackerPower, m.DefenderPower)
			fmt.Printf("  units killed %d  structure damage %d\n", m.UnitsKilled, m.StructDamage)
			fmt.Printf("  xp %d / %d  at %s\n", m.AttackerXP, m.DefenderXP, m.CreatedAt.Format(time.RFC3339))
			if len(m.Intel) > 0 {
				fmt.Printf("  payload: %s\n", string(m.Intel))
			}
			return nil
		},
	}
}

// newSweepCmd runs one turn sweep directly against the database, bypassing
// the API. Meant for cron-style ops and local testing.
func newSweepCmd(cfg *config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one turn-regeneration sweep against the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required for sweep")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
			defer cancel()

			logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
			pool, err := db.Connect(ctx, cfg.DatabaseURL, "stellarctl")
			if err != nil {
				return err
			}
			defer pool.Close()

			catalog, err := game.LoadCatalog(cfg.BalanceFile)
			if err != nil {
				return err
			}
			svc := game.NewService(pool, logger, catalog, game.ServiceOptions{})
			stats, err := svc.RunTurnSweep(ctx)
			if err != nil {
				return err
			}
			success.Printf("sweep done: %d updated, %d skipped, %d failed of %d\n",
				stats.Updated, stats.Skipped, stats.Failed, stats.Scanned)
			return nil
		},
	}
}

package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"triagebot/internal/config"
	"triagebot/internal/provider"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your triagebot installation",
		Long: `Verifies that triagebot's configuration, knowledge base, completion
service, and audit database are correctly set up. Reports pass/fail for each
check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			fmt.Printf("Triagebot Doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed := 0
			failed := 0
			warned := 0

			// 1. Config file exists
			if _, err := os.Stat(cfgPath); err != nil {
				printFail("Config file", fmt.Sprintf("not found at %s", cfgPath))
				fmt.Printf("\nRun 'triagebot init' to create a default configuration.\n")
				return nil
			}
			printPass("Config file", cfgPath)
			passed++

			// 2. Config loads and validates
			cfg, err := config.Load(cfgPath)
			if err != nil {
				printFail("Config validation", err.Error())
				fmt.Printf("\n%d passed, %d failed\n", passed, 1)
				return nil
			}
			printPass("Config validation", "valid")
			passed++

			// 3. Knowledge base readable
			if info, err := os.Stat(cfg.Knowledge.Path); err != nil {
				printFail("Knowledge base", fmt.Sprintf("not found: %s", cfg.Knowledge.Path))
				failed++
			} else if info.Size() == 0 {
				printWarn("Knowledge base", "file is empty")
				warned++
			} else {
				printPass("Knowledge base", fmt.Sprintf("%s (%d bytes)", cfg.Knowledge.Path, info.Size()))
				passed++
			}

			// 4. Completion service reachable
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			factory := provider.NewFactory(cfg, logger)
			if completer, err := factory.Get(""); err != nil {
				printFail("Provider", err.Error())
				failed++
			} else if err := completer.Healthy(ctx); err != nil {
				printWarn("Provider", fmt.Sprintf("%s: %v", completer.Name(), err))
				warned++
			} else {
				printPass("Provider", completer.Name())
				passed++
			}

			// 5. Audit database writable
			if cfg.Audit.Enabled {
				if err := checkDatabase(cfg.Audit.DBPath); err != nil {
					printFail("Audit database", err.Error())
					failed++
				} else {
					printPass("Audit database", cfg.Audit.DBPath)
					passed++
				}
			} else {
				printWarn("Audit database", "disabled")
				warned++
			}

			// 6. Authorization surface
			if len(cfg.Triage.Operators) == 0 {
				printWarn("Operators", "none configured; admin commands and retraction disabled")
				warned++
			} else {
				printPass("Operators", fmt.Sprintf("%d configured", len(cfg.Triage.Operators)))
				passed++
			}
			if cfg.Triage.ModerationChatID == 0 {
				printWarn("Moderation channel", "not configured; running answer-only")
				warned++
			} else {
				printPass("Moderation channel", fmt.Sprintf("%d", int64(cfg.Triage.ModerationChatID)))
				passed++
			}

			// Summary
			fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Printf("Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				fmt.Printf("\nPlease fix the failed checks before running triagebot.\n")
				return fmt.Errorf("%d check(s) failed", failed)
			}
			if warned > 0 {
				fmt.Printf("\nTriagebot should work but consider fixing the warnings.\n")
			} else {
				fmt.Printf("\nAll checks passed! Triagebot is ready to run.\n")
			}
			return nil
		},
	}
}

func checkDatabase(dbPath string) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("cannot create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("cannot open: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("cannot ping: %w", err)
	}
	return nil
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-20s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-20s %s\n", check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  [WARN] %-20s %s\n", check, detail)
}

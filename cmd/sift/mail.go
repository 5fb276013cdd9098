package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"time"

	"github.com/harunnryd/sift/internal/config"
	"github.com/harunnryd/sift/internal/daemon/components"
	"github.com/harunnryd/sift/internal/mail"
	"github.com/harunnryd/sift/internal/model"
	"github.com/harunnryd/sift/internal/priority"
	"github.com/harunnryd/sift/internal/store"

	"github.com/spf13/cobra"
)

var mailCmd = &cobra.Command{
	Use:   "mail",
	Short: "Mail triage",
	Long:  `Check the mailbox once, inspect the daily summary and manage VIP senders.`,
}

var mailCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Classify new mail once",
	Long:  `Connects to the mailbox, classifies messages not seen before and files them into priority folders.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}

		router, err := model.NewModelRouter(cfg.Models)
		if err != nil {
			return fmt.Errorf("failed to create model router: %w", err)
		}

		stack, err := components.BuildMailStack("cli", cfg.Mail, router)
		if err != nil {
			return fmt.Errorf("failed to prepare mail agent (is 'sift serve' holding the data dir?): %w", err)
		}
		defer stack.Close()

		sig := NewSignalHandler(commandContext(cmd))
		sig.Start()
		defer sig.Stop()

		result, err := stack.Agent.Check(sig.Context())
		if err != nil {
			return fmt.Errorf("mail check failed: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Processed %d message(s) in %s (skipped %d, errors %d)\n", result.Processed, result.Duration, result.Skipped, result.Errors)
		for _, label := range priority.Labels() {
			fmt.Fprintf(out, "  %-10s %d\n", label, result.ByPriority[label])
		}
		return printSummary(out, stack.Agent.Summary())
	},
}

var mailSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show today's summary from the running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
		}

		summary, err := fetchSummary(commandContext(cmd), addr)
		if err != nil {
			return err
		}
		return printSummary(cmd.OutOrStdout(), summary)
	},
}

func fetchSummary(ctx context.Context, addr string) (map[priority.Label][]mail.SummaryEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr+"/api/v1/mail/summary", nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach sift at %s (is 'sift serve' running?): %w", addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("summary request failed: %s: %s", resp.Status, body)
	}

	var summary map[priority.Label][]mail.SummaryEntry
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return nil, fmt.Errorf("failed to decode summary: %w", err)
	}
	return summary, nil
}

func printSummary(out io.Writer, summary map[priority.Label][]mail.SummaryEntry) error {
	total := 0
	for _, entries := range summary {
		total += len(entries)
	}
	if total == 0 {
		fmt.Fprintln(out, "No messages in today's summary.")
		return nil
	}

	rows := make([][]string, 0, total)
	for _, label := range priority.Labels() {
		for _, e := range summary[label] {
			rows = append(rows, []string{string(label), e.From, e.Subject, e.Date})
		}
	}
	fmt.Fprintln(out, renderTable([]string{"Priority", "From", "Subject", "Date"}, rows))

	fmt.Fprintf(out, "\nTotal: %d message(s)\n", total)
	return nil
}

var mailVIPCmd = &cobra.Command{
	Use:   "vip",
	Short: "Manage VIP senders",
}

var mailVIPAddCmd = &cobra.Command{
	Use:   "add [address]",
	Short: "Add a VIP sender",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPreferences(cfg.Mail, func(prefs *mail.PreferencesStore) error {
			updated, err := prefs.AddVIP(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%d VIP sender(s))\n", args[0], len(updated.VIPSenders))
			return nil
		})
	},
}

var mailVIPRemoveCmd = &cobra.Command{
	Use:   "remove [address]",
	Short: "Remove a VIP sender",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPreferences(cfg.Mail, func(prefs *mail.PreferencesStore) error {
			if !slices.Contains(prefs.Get().VIPSenders, args[0]) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is not a VIP sender\n", args[0])
				return nil
			}
			updated, err := prefs.RemoveVIP(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s (%d VIP sender(s))\n", args[0], len(updated.VIPSenders))
			return nil
		})
	},
}

var mailVIPListCmd = &cobra.Command{
	Use:   "list",
	Short: "List VIP senders",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPreferences(cfg.Mail, func(prefs *mail.PreferencesStore) error {
			vips := prefs.Get().VIPSenders
			out := cmd.OutOrStdout()
			if len(vips) == 0 {
				fmt.Fprintln(out, "No VIP senders.")
				return nil
			}
			for _, v := range vips {
				fmt.Fprintln(out, v)
			}
			return nil
		})
	},
}

// withPreferences runs fn against the preferences file while holding the
// data dir lock.
func withPreferences(mailCfg config.MailConfig, fn func(*mail.PreferencesStore) error) error {
	dataDir, err := store.ResolveDataDir(mailCfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to resolve data dir: %w", err)
	}

	lockCfg, err := store.NewFileLockConfig(mailCfg.LockTimeout, mailCfg.LockRetry)
	if err != nil {
		return err
	}
	lock, err := store.NewFileLock("cli", dataDir, lockCfg)
	if err != nil {
		return fmt.Errorf("failed to lock data dir (is 'sift serve' running? use the HTTP API instead): %w", err)
	}
	defer lock.Unlock()

	prefs, err := mail.LoadPreferences(store.PreferencesPath(dataDir))
	if err != nil {
		return err
	}
	return fn(prefs)
}

func init() {
	mailSummaryCmd.Flags().String("addr", "", "base URL of the running server (default http://127.0.0.1:<server.port>)")

	mailVIPCmd.AddCommand(mailVIPAddCmd)
	mailVIPCmd.AddCommand(mailVIPRemoveCmd)
	mailVIPCmd.AddCommand(mailVIPListCmd)

	mailCmd.AddCommand(mailCheckCmd)
	mailCmd.AddCommand(mailSummaryCmd)
	mailCmd.AddCommand(mailVIPCmd)
	rootCmd.AddCommand(mailCmd)
}

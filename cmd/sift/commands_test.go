package main

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/harunnryd/sift/internal/config"
	"github.com/harunnryd/sift/internal/mail"
	"github.com/harunnryd/sift/internal/priority"
	"github.com/harunnryd/sift/internal/scheduler"
	"github.com/harunnryd/sift/internal/store"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// useConfig points the package config at a fresh mail data dir.
func useConfig(t *testing.T) string {
	t.Helper()
	dataDir := filepath.Join(t.TempDir(), "mail")

	prev := cfg
	cfg = &config.Config{
		Server: config.ServerConfig{Port: config.DefaultServerPort},
		Mail: config.MailConfig{
			DataDir:     dataDir,
			LockTimeout: "200ms",
			LockRetry:   "10ms",
		},
	}
	t.Cleanup(func() { cfg = prev })
	return dataDir
}

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
}

func run(t *testing.T, cmd *cobra.Command, args []string, flags map[string]string) (string, error) {
	t.Helper()
	resetFlags(cmd)
	t.Cleanup(func() { resetFlags(cmd) })

	for name, value := range flags {
		require.NoError(t, cmd.Flags().Set(name, value))
	}

	var out bytes.Buffer
	cmd.SetOut(&out)
	t.Cleanup(func() { cmd.SetOut(nil) })

	err := cmd.RunE(cmd, args)
	return out.String(), err
}

func TestVIPCommands(t *testing.T) {
	dataDir := useConfig(t)

	out, err := run(t, mailVIPListCmd, nil, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "No VIP senders")

	out, err = run(t, mailVIPAddCmd, []string{"boss@corp.com"}, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "Added boss@corp.com")

	prefs, err := mail.LoadPreferences(store.PreferencesPath(dataDir))
	require.NoError(t, err)
	assert.Equal(t, []string{"boss@corp.com"}, prefs.Get().VIPSenders)

	out, err = run(t, mailVIPListCmd, nil, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "boss@corp.com")

	out, err = run(t, mailVIPRemoveCmd, []string{"nobody@corp.com"}, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "is not a VIP sender")

	out, err = run(t, mailVIPRemoveCmd, []string{"boss@corp.com"}, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed boss@corp.com")
}

func TestVIPCommands_DataDirLocked(t *testing.T) {
	dataDir := useConfig(t)

	lock, err := store.NewFileLock("other", dataDir, store.DefaultFileLockConfig())
	require.NoError(t, err)
	defer lock.Unlock()

	_, err = run(t, mailVIPAddCmd, []string{"boss@corp.com"}, nil)
	assert.Error(t, err)
}

func TestPriorityAdjustCmd(t *testing.T) {
	tests := []struct {
		name  string
		flags map[string]string
		want  string
	}{
		{
			name:  "vip promotes routine",
			flags: map[string]string{"label": "routine", "from": "ceo@corp.com", "vip": "ceo@", "no-prefs": "true"},
			want:  "important (was routine)",
		},
		{
			name:  "keyword flag",
			flags: map[string]string{"label": "low", "subject": "Server DOWN", "keyword": "urgent=down", "no-prefs": "true"},
			want:  "urgent (was low)",
		},
		{
			name:  "no rules",
			flags: map[string]string{"label": "routine", "subject": "hello", "no-prefs": "true"},
			want:  "routine (unchanged)",
		},
		{
			name:  "saved preferences",
			flags: map[string]string{"label": "routine", "subject": "Weekly newsletter"},
			want:  "low (was routine)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useConfig(t)
			out, err := run(t, priorityAdjustCmd, nil, tt.flags)
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestPriorityAdjustCmd_InvalidInput(t *testing.T) {
	useConfig(t)

	_, err := run(t, priorityAdjustCmd, nil, map[string]string{"label": "critical", "no-prefs": "true"})
	assert.Error(t, err)

	_, err = run(t, priorityAdjustCmd, nil, map[string]string{"keyword": "nolabel", "no-prefs": "true"})
	assert.Error(t, err)
}

func TestJobsCmd(t *testing.T) {
	t.Run("without history", func(t *testing.T) {
		useConfig(t)

		out, err := run(t, jobsCmd, nil, nil)
		require.NoError(t, err)
		assert.Contains(t, out, "No jobs recorded")
	})

	t.Run("with history", func(t *testing.T) {
		dataDir := useConfig(t)

		jobStore, err := scheduler.NewStore(store.SchedulerPath(dataDir))
		require.NoError(t, err)
		require.NoError(t, jobStore.Update("mail-check", func(st *scheduler.JobStatus) {
			st.Schedule = "@every 15m"
			st.Status = scheduler.StatusDone
			st.Runs = 3
			st.LastRun = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		}))

		out, err := run(t, jobsCmd, nil, nil)
		require.NoError(t, err)
		assert.Contains(t, out, "mail-check")
		assert.Contains(t, out, "@every 15m")
		assert.Contains(t, out, "Total: 1 job(s)")
	})
}

func TestPrintSummary(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printSummary(&out, nil))
	assert.Contains(t, out.String(), "No messages")

	out.Reset()
	require.NoError(t, printSummary(&out, map[priority.Label][]mail.SummaryEntry{
		priority.Urgent: {{Subject: "Server down", From: "ops@corp.com", Date: "2026-03-01"}},
	}))
	assert.Contains(t, out.String(), "Server down")
	assert.Contains(t, out.String(), "Total: 1 message(s)")
}

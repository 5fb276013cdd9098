package components

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/harunnryd/sift/internal/config"
	"github.com/harunnryd/sift/internal/daemon"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 0},
		Models: config.ModelsConfig{
			Default:  "llama3",
			Registry: []config.ModelRegistry{{Name: "llama3", Provider: "ollama"}},
		},
		Transcript: config.TranscriptConfig{
			SessionExpiry: "1m",
			MaxSessions:   10,
			SweepInterval: "0s",
		},
		Video: config.VideoConfig{Model: "llama3"},
	}
}

func TestTranscriptComponent(t *testing.T) {
	ctx := context.Background()
	comp := NewTranscriptComponent(&testConfig().Transcript)

	health, err := comp.Health(ctx)
	require.NoError(t, err)
	assert.False(t, health.Healthy)
	assert.Error(t, comp.Start(ctx))

	require.NoError(t, comp.Init(ctx))
	require.NotNil(t, comp.Cache())
	require.NotNil(t, comp.Service())
	require.NoError(t, comp.Start(ctx))

	health, err = comp.Health(ctx)
	require.NoError(t, err)
	assert.True(t, health.Healthy)

	assert.NoError(t, comp.Stop(ctx))
}

func TestTranscriptComponent_InvalidDuration(t *testing.T) {
	cfg := testConfig().Transcript
	cfg.SessionExpiry = "soon"

	err := NewTranscriptComponent(&cfg).Init(context.Background())
	assert.Error(t, err)
}

func TestMailComponent_Disabled(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()

	models := NewModelsComponent(&cfg.Models)
	require.NoError(t, models.Init(ctx))

	comp := NewMailComponent(&cfg.Mail, models)
	require.NoError(t, comp.Init(ctx))
	assert.Nil(t, comp.Agent())
	assert.Empty(t, comp.DataDir())

	health, err := comp.Health(ctx)
	require.NoError(t, err)
	assert.True(t, health.Healthy)
}

func TestSchedulerComponent_NoMail(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()

	models := NewModelsComponent(&cfg.Models)
	require.NoError(t, models.Init(ctx))
	mailComp := NewMailComponent(&cfg.Mail, models)
	require.NoError(t, mailComp.Init(ctx))

	comp := NewSchedulerComponent(cfg, mailComp)
	require.NoError(t, comp.Init(ctx))
	require.NoError(t, comp.Start(ctx))

	assert.Empty(t, comp.GetScheduler().Jobs())

	health, err := comp.Health(ctx)
	require.NoError(t, err)
	assert.True(t, health.Healthy)

	require.NoError(t, comp.Stop(ctx))
}

func TestHTTPServerComponent(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()

	d, err := daemon.NewDaemon(cfg)
	require.NoError(t, err)

	transcriptComp := NewTranscriptComponent(&cfg.Transcript)
	models := NewModelsComponent(&cfg.Models)
	mailComp := NewMailComponent(&cfg.Mail, models)
	schedulerComp := NewSchedulerComponent(cfg, mailComp)
	httpComp := NewHTTPServerComponent(d, cfg, transcriptComp, models, mailComp, schedulerComp)

	for _, c := range []daemon.Component{transcriptComp, models, mailComp, schedulerComp, httpComp} {
		d.AddComponent(c)
		require.NoError(t, c.Init(ctx), c.Name())
	}
	require.NoError(t, httpComp.Start(ctx))
	t.Cleanup(func() { _ = httpComp.Stop(context.Background()) })

	addr := httpComp.Addr()
	require.NotEmpty(t, addr)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + addr + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Components map[string]struct {
			Healthy bool `json:"healthy"`
		} `json:"components"`
		MailEnabled bool `json:"mail_enabled"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.Components, "HTTPServer")
	assert.True(t, body.Components["Transcript"].Healthy)
	assert.False(t, body.MailEnabled)

	health, err := httpComp.Health(ctx)
	require.NoError(t, err)
	assert.True(t, health.Healthy)
}

func TestHTTPServerComponent_RequiresDependencies(t *testing.T) {
	cfg := testConfig()
	comp := NewHTTPServerComponent(nil, cfg, NewTranscriptComponent(&cfg.Transcript), NewModelsComponent(&cfg.Models), nil, nil)

	assert.Error(t, comp.Init(context.Background()))
	assert.Equal(t, []string{"Transcript", "Models", "Mail", "Scheduler"}, comp.Dependencies())
}

func TestNewNotifier(t *testing.T) {
	d := NewNotifier(config.NotifyConfig{})
	assert.Equal(t, []string{"log"}, d.Channels())

	d = NewNotifier(config.NotifyConfig{
		Slack:    config.SlackNotifyConfig{BotToken: "xoxb-test", Channel: "C1"},
		Telegram: config.TelegramNotifyConfig{BotToken: "123:abc"},
	})
	assert.Equal(t, []string{"log", "slack"}, d.Channels())

	d = NewNotifier(config.NotifyConfig{
		Slack:    config.SlackNotifyConfig{BotToken: "xoxb-test", Channel: "C1"},
		Telegram: config.TelegramNotifyConfig{BotToken: "123:abc", ChatID: 42},
	})
	assert.Equal(t, []string{"log", "slack", "telegram"}, d.Channels())
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "app:\n  log_level: debug\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, defaultQuery, cfg.Pipeline.Query)
	assert.Equal(t, defaultIntervalSeconds, cfg.Pipeline.IntervalSeconds)
	assert.Equal(t, defaultMaxCandidates, cfg.Pipeline.MaxCandidateSymbols)
	assert.Equal(t, defaultMaxFocus, cfg.Pipeline.MaxFocusSymbols)
	assert.Equal(t, defaultAIModel, cfg.AI.Model)
	assert.Equal(t, defaultFinProvider, cfg.Financial.Provider)
	assert.Equal(t, defaultArtifactDir, cfg.Store.ArtifactDir)
	assert.False(t, cfg.Pipeline.ExecuteOrders, "live execution is opt-in")
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
pipeline:
  query: "semiconductor supply chain"
  once: true
  interval_seconds: 60
  max_candidate_symbols: 5
  max_focus_symbols: 3
financial:
  provider: mock
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "semiconductor supply chain", cfg.Pipeline.Query)
	assert.True(t, cfg.Pipeline.Once)
	assert.Equal(t, 60, cfg.Pipeline.IntervalSeconds)
	assert.Equal(t, "mock", cfg.Financial.Provider)
}

func TestSecretsComeFromEnvOnly(t *testing.T) {
	t.Setenv("TAVILY_API_KEY", "tv-secret")
	t.Setenv("XAI_API_KEY", "xai-secret")
	t.Setenv("ALPACA_API_KEY", "")
	t.Setenv("APCA_API_KEY_ID", "apca-key")
	t.Setenv("ALPACA_API_SECRET", "alp-secret")

	path := writeConfig(t, "app: {}\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "tv-secret", cfg.Web.APIKey)
	assert.Equal(t, "xai-secret", cfg.AI.APIKey)
	assert.Equal(t, "apca-key", cfg.Broker.APIKey, "APCA_ fallback names are honored")
	assert.Equal(t, "alp-secret", cfg.Broker.APISecret)
}

func TestValidateRejectsBadCombos(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"negative interval", "pipeline:\n  interval_seconds: -5\n"},
		{"focus exceeds candidates", "pipeline:\n  max_candidate_symbols: 3\n  max_focus_symbols: 5\n"},
		{"unknown provider", "financial:\n  provider: bloomberg\n"},
		{"max_results out of range", "web:\n  max_results: 50\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestStopIfMarketClosedRequiresCredentials(t *testing.T) {
	t.Setenv("ALPACA_API_KEY", "")
	t.Setenv("APCA_API_KEY_ID", "")
	t.Setenv("ALPACA_API_SECRET", "")
	t.Setenv("APCA_API_SECRET_KEY", "")

	path := writeConfig(t, "pipeline:\n  stop_if_market_closed: true\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker credentials")
}

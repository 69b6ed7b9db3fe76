package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "giveaway.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "offer_webhook: http://localhost:9090/offers\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "img", cfg.ImageDir)
	assert.Equal(t, "hidden_img", cfg.HiddenDir)
	assert.Equal(t, 30*time.Minute, cfg.OfferInterval.Std())
	assert.Equal(t, 3, cfg.WinnerCap)
	assert.Equal(t, 10, cfg.LeaderboardLimit)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
listen_addr: ":9000"
database: /tmp/g.db
image_dir: prizes
hidden_dir: previews
offer_interval: 1h30m
winner_cap: 5
leaderboard_limit: 25
offer_webhook: http://bot:8000/offers
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "prizes", cfg.ImageDir)
	assert.Equal(t, 90*time.Minute, cfg.OfferInterval.Std())
	assert.Equal(t, 5, cfg.WinnerCap)
	assert.Equal(t, 25, cfg.LeaderboardLimit)
}

func TestLoadRejectsBadConfig(t *testing.T) {
	cases := map[string]string{
		"missing webhook":  "winner_cap: 3\n",
		"zero winner cap":  "winner_cap: 0\noffer_webhook: http://x/\n",
		"invalid duration": "offer_interval: soon\noffer_webhook: http://x/\n",
		"tiny interval":    "offer_interval: 100ms\noffer_webhook: http://x/\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	assert.Error(t, err)
}

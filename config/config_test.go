package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(HomeEnv, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(HomeEnv, dir)

	cfg := DefaultConfig()
	cfg.Practice.Tempo = 96
	cfg.MIDI.InputPorts = []string{"TD-17"}
	cfg.Store.Backend = "dynamo"
	require.NoError(t, cfg.Save())

	_, err := os.Stat(filepath.Join(dir, "config.json"))
	require.NoError(t, err)

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"practice":{"tempo":80}}`), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 80.0, cfg.Practice.Tempo)
	assert.Equal(t, 24, cfg.Practice.PPQN)
	assert.Equal(t, "gm", cfg.MIDI.Kit)
}

func TestPaths(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(HomeEnv, dir)
	cfg := DefaultConfig()

	p, err := cfg.EventsPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "events.csv"), p)

	p, err = cfg.StoreDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data"), p)

	cfg.Practice.EventsCSV = "/tmp/x.csv"
	p, _ = cfg.EventsPath()
	assert.Equal(t, "/tmp/x.csv", p)
}

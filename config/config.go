package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// HomeEnv overrides the config directory
const HomeEnv = "GO_GROOVE_HOME"

// MIDIConfig selects the drum pad and the module patterns play through
type MIDIConfig struct {
	InputPorts []string `json:"inputPorts,omitempty"` // substrings; empty watches every port
	InChannel  int      `json:"inChannel"`            // -1 accepts all channels
	OutputPort string   `json:"outputPort,omitempty"`
	OutChannel uint8    `json:"outChannel"`
	Kit        string   `json:"kit"`
	Echo       bool     `json:"echo,omitempty"`
}

// PracticeConfig holds the session defaults
type PracticeConfig struct {
	Tempo       float64 `json:"tempo"`
	PPQN        int     `json:"ppqn"`
	TempoWindow int     `json:"tempoWindow"`
	EventsCSV   string  `json:"eventsCsv,omitempty"` // defaults to <dir>/events.csv
	UserID      string  `json:"userId,omitempty"`
}

// StoreConfig selects the persistence backend
type StoreConfig struct {
	Backend           string `json:"backend"` // "file" or "dynamo"
	Dir               string `json:"dir,omitempty"`
	Region            string `json:"region,omitempty"`
	Endpoint          string `json:"endpoint,omitempty"`
	BeatsTable        string `json:"beatsTable,omitempty"`
	PerformancesTable string `json:"performancesTable,omitempty"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr           string   `json:"addr"`
	AllowedOrigins []string `json:"allowedOrigins,omitempty"`
}

// LogConfig configures logging
type LogConfig struct {
	Level string `json:"level"`
	File  string `json:"file,omitempty"`
}

// UIConfig stores UI preferences
type UIConfig struct {
	Palette  string `json:"palette,omitempty"` // path to a GIMP .gpl file
	LastBeat string `json:"lastBeat,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	MIDI     MIDIConfig     `json:"midi"`
	Practice PracticeConfig `json:"practice"`
	Store    StoreConfig    `json:"store"`
	Server   ServerConfig   `json:"server"`
	Log      LogConfig      `json:"log"`
	UI       UIConfig       `json:"ui,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MIDI: MIDIConfig{
			InChannel:  -1,
			OutChannel: 9,
			Kit:        "gm",
		},
		Practice: PracticeConfig{
			Tempo:       120,
			PPQN:        24,
			TempoWindow: 4,
		},
		Store: StoreConfig{
			Backend: "file",
			Region:  "us-east-1",
		},
		Server: ServerConfig{
			Addr: "localhost:8080",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-groove"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found.
// Fields missing from the file keep their defaults.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFile(path)
}

// LoadFile reads a specific config file
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes the config to path
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// EventsPath returns where the session CSV is written
func (c *Config) EventsPath() (string, error) {
	if c.Practice.EventsCSV != "" {
		return c.Practice.EventsCSV, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "events.csv"), nil
}

// StoreDir returns the file store directory
func (c *Config) StoreDir() (string, error) {
	if c.Store.Dir != "" {
		return c.Store.Dir, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "data"), nil
}

// LogPath returns the debug log file, empty when file logging is off
func (c *Config) LogPath() string {
	return c.Log.File
}

// Package raftconf holds the configuration options named in spec §6:
// log_path, heartbeat_interval, election_interval, and the optional
// secret_key/salt for encrypted-frame mode, plus cluster topology. There
// is no serializer option: frames use wire.JSONSerializer, wrapped in
// wire.EncryptedSerializer when secret_key and salt are both set.
//
// Defaults mirror original_source/raftos/conf.py's Configuration
// default_settings(). There is no Configure function; callers override
// programmatically by setting fields on the Config that Default returns. A
// YAML file loader is
// layered on top for the registration CLI, using gopkg.in/yaml.v3 (the
// config-file format this corpus's cobra-based daemons use).
package raftconf

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	raft "github.com/coral-raft/raft"
)

// ElectionInterval is the (low, high) bound random election timeouts are
// drawn from, per spec §4.5. Low must be strictly greater than the
// heartbeat interval, and low must be strictly less than high.
type ElectionInterval struct {
	Low  time.Duration
	High time.Duration
}

// Config is the full set of options recognized by a node, spec §6.
type Config struct {
	NodeID NodeID   `yaml:"node_id"`
	Peers  []NodeID `yaml:"peers"`

	LogPath           string           `yaml:"log_path"`
	HeartbeatInterval time.Duration    `yaml:"heartbeat_interval"`
	ElectionInterval  ElectionInterval `yaml:"election_interval"`

	// SecretKey/Salt enable wire.EncryptedSerializer when both are
	// non-empty. Optional, per spec §6.
	SecretKey string `yaml:"secret_key"`
	Salt      string `yaml:"salt"`
}

// NodeID mirrors raft.NodeID so config files don't need to import the
// root package just to spell the type; Config.ClusterInfo converts.
type NodeID = raft.NodeID

// Default returns the settings from original_source/raftos/conf.py's
// default_settings(): heartbeat_interval=0.5s, election_interval=(2s,4s).
func Default() Config {
	return Config{
		LogPath:           "/var/lib/raft",
		HeartbeatInterval: 500 * time.Millisecond,
		ElectionInterval:  ElectionInterval{Low: 2 * time.Second, High: 4 * time.Second},
	}
}

// Load reads and parses a YAML config file, starting from Default() so
// that any field the file omits keeps its default value.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("raftconf: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("raftconf: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the timing invariant spec §6 requires:
// heartbeat_interval < election_interval.low < election_interval.high.
func (c Config) Validate() error {
	if c.ElectionInterval.Low >= c.ElectionInterval.High {
		return fmt.Errorf("raftconf: election_interval low (%s) must be < high (%s)",
			c.ElectionInterval.Low, c.ElectionInterval.High)
	}
	if c.HeartbeatInterval >= c.ElectionInterval.Low {
		return fmt.Errorf("raftconf: heartbeat_interval (%s) must be < election_interval.low (%s)",
			c.HeartbeatInterval, c.ElectionInterval.Low)
	}
	if c.NodeID == "" {
		return fmt.Errorf("raftconf: node_id is required")
	}
	return nil
}

// ClusterInfo builds a *raft.ClusterInfo from NodeID and Peers.
func (c Config) ClusterInfo() (*raft.ClusterInfo, error) {
	all := append([]raft.NodeID{c.NodeID}, c.Peers...)
	return raft.NewClusterInfo(all, c.NodeID)
}

// EncryptionEnabled reports whether both SecretKey and Salt are set.
func (c Config) EncryptionEnabled() bool {
	return c.SecretKey != "" && c.Salt != ""
}

// LogFilePath returns the path to the append-only log file, a sibling of
// the term/vote store inside the configured log_path directory.
func (c Config) LogFilePath() string {
	return filepath.Join(c.LogPath, "log.bin")
}

// TermVotePath returns the path to the current-term/voted-for store, a
// sibling of the log file inside the configured log_path directory.
func (c Config) TermVotePath() string {
	return filepath.Join(c.LogPath, "termvote.json")
}

// yamlConfig is the on-disk shape: durations as human strings ("500ms",
// "2s") rather than raw nanosecond integers.
type yamlConfig struct {
	NodeID            NodeID   `yaml:"node_id"`
	Peers             []NodeID `yaml:"peers"`
	LogPath           string   `yaml:"log_path"`
	HeartbeatInterval string   `yaml:"heartbeat_interval"`
	ElectionInterval  struct {
		Low  string `yaml:"low"`
		High string `yaml:"high"`
	} `yaml:"election_interval"`
	SecretKey string `yaml:"secret_key"`
	Salt      string `yaml:"salt"`
}

// UnmarshalYAML lets config files spell durations as "500ms" / "2s"
// instead of raw nanosecond integers.
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	var y yamlConfig
	if err := node.Decode(&y); err != nil {
		return err
	}

	c.NodeID = y.NodeID
	c.Peers = y.Peers
	if y.LogPath != "" {
		c.LogPath = y.LogPath
	}
	if y.HeartbeatInterval != "" {
		d, err := time.ParseDuration(y.HeartbeatInterval)
		if err != nil {
			return fmt.Errorf("raftconf: heartbeat_interval: %w", err)
		}
		c.HeartbeatInterval = d
	}
	if y.ElectionInterval.Low != "" {
		d, err := time.ParseDuration(y.ElectionInterval.Low)
		if err != nil {
			return fmt.Errorf("raftconf: election_interval.low: %w", err)
		}
		c.ElectionInterval.Low = d
	}
	if y.ElectionInterval.High != "" {
		d, err := time.ParseDuration(y.ElectionInterval.High)
		if err != nil {
			return fmt.Errorf("raftconf: election_interval.high: %w", err)
		}
		c.ElectionInterval.High = d
	}
	c.SecretKey = y.SecretKey
	c.Salt = y.Salt
	return nil
}

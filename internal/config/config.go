package config

import "time"

// Config holds everything that used to be hardcoded module state in the
// browser build: the storage slot, the channel name, the exit policy.
// Two configs with different channels are two independent rooms.
type Config struct {
	// Addr is the relay server listen address.
	Addr string `mapstructure:"addr" yaml:"addr"`
	// RelayURL is where chat clients reach the relay. Empty means the
	// client runs on a process-local channel with no peers.
	RelayURL string `mapstructure:"relay_url" yaml:"relay_url"`
	// Channel names the broadcast channel all tabs of one room share.
	Channel string `mapstructure:"channel" yaml:"channel"`
	// StorageDir and StorageKey locate the local log slot.
	StorageDir string `mapstructure:"storage_dir" yaml:"storage_dir"`
	StorageKey string `mapstructure:"storage_key" yaml:"storage_key"`
	// DBPath enables the sqlite mirror when non-empty.
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
	// NameMaxLen bounds display names at enter time, in runes.
	NameMaxLen int `mapstructure:"name_max_len" yaml:"name_max_len"`
	// ClearOnExit also wipes the persisted log when the session exits.
	ClearOnExit bool `mapstructure:"clear_on_exit" yaml:"clear_on_exit"`

	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		RelayURL:          "ws://localhost:8080/ws",
		Channel:           "yui_chat_room",
		StorageDir:        ".yuichat",
		StorageKey:        "yui_chat_dat",
		NameMaxLen:        20,
		ClearOnExit:       true,
		LogLevel:          "info",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
	}
}

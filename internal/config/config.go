package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Network   NetworkConfig   `toml:"network"`
	NPC       NPCConfig       `toml:"npc"`
	Assets    AssetsConfig    `toml:"assets"`
	Scripting ScriptingConfig `toml:"scripting"`
	Data      DataConfig      `toml:"data"`
	Logging   LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Name      string `toml:"name"`
	StartTime int64  // set at boot, not from config
}

type DatabaseConfig struct {
	Driver          string        `toml:"driver"` // "postgres" or "sqlite"
	DSN             string        `toml:"dsn"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
	SaveInterval    int           `toml:"save_interval"` // ticks between NPC state saves
}

type NetworkConfig struct {
	BindAddress       string        `toml:"bind_address"`
	TickRate          time.Duration `toml:"tick_rate"`
	InQueueSize       int           `toml:"in_queue_size"`
	OutQueueSize      int           `toml:"out_queue_size"`
	MaxPacketsPerTick int           `toml:"max_packets_per_tick"`
	WriteTimeout      time.Duration `toml:"write_timeout"`
	ReadTimeout       time.Duration `toml:"read_timeout"`
	CompressLevel     int           `toml:"compress_level"`    // zlib level for outgoing frames
	PacketsPerSecond  int           `toml:"packets_per_second"` // 0 = unlimited
	InputPoll         time.Duration `toml:"input_poll"`         // input-only pass between ticks, 0 = off
}

type NPCConfig struct {
	HasNPCServer           bool          `toml:"has_npc_server"`
	TrimCode               bool          `toml:"trim_code"`
	AlwaysVisibleFirstSync bool          `toml:"always_visible_first_sync"`
	TimerInterval          time.Duration `toml:"timer_interval"` // one NPC timeout tick
}

type AssetsConfig struct {
	Dir     string `toml:"dir"`
	Charset string `toml:"charset"` // "" keeps UTF-8, "windows-1252" converts loaded text
}

type ScriptingConfig struct {
	Dir string `toml:"dir"` // Lua action scripts
}

type DataConfig struct {
	NPCList string `toml:"npc_list"`
	MapList string `toml:"map_list"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Server.StartTime = time.Now().Unix()
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	switch c.Assets.Charset {
	case "", "utf-8", "windows-1252":
	default:
		return fmt.Errorf("unknown assets charset %q", c.Assets.Charset)
	}
	if c.Network.TickRate <= 0 {
		return fmt.Errorf("tick_rate must be positive")
	}
	if c.Network.InputPoll < 0 {
		return fmt.Errorf("input_poll must not be negative")
	}
	if c.NPC.TimerInterval <= 0 {
		return fmt.Errorf("timer_interval must be positive")
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name: "gs2go-npcserver",
		},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			DSN:             "file:npcserver.db",
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			SaveInterval:    300,
		},
		Network: NetworkConfig{
			BindAddress:       "0.0.0.0:14900",
			TickRate:          100 * time.Millisecond,
			InQueueSize:       128,
			OutQueueSize:      256,
			MaxPacketsPerTick: 32,
			WriteTimeout:      10 * time.Second,
			ReadTimeout:       60 * time.Second,
			CompressLevel:     6,
			PacketsPerSecond:  200,
			InputPoll:         5 * time.Millisecond,
		},
		NPC: NPCConfig{
			HasNPCServer:  true,
			TrimCode:      true,
			TimerInterval: 100 * time.Millisecond,
		},
		Assets: AssetsConfig{
			Dir: "world",
		},
		Scripting: ScriptingConfig{
			Dir: "scripts",
		},
		Data: DataConfig{
			NPCList: "data/npcs.yaml",
			MapList: "data/maps.yaml",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

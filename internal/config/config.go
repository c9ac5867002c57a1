// Package config loads the immutable service configuration.
//
// Configuration comes from three layers, later layers winning:
// built-in defaults, an optional TOML file, and STOCK_* environment
// variables. The resulting Config is injected into each component at
// construction; nothing reads ambient process state afterwards.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Server contains HTTP listener settings.
type Server struct {
	Port int `toml:"port"`
}

// Storage contains the session storage settings.
type Storage struct {
	// Root is the directory that holds one subdirectory per session.
	Root string `toml:"root"`
}

// Gemini contains vision-provider settings.
type Gemini struct {
	Model string `toml:"model"`
	// CallTimeout bounds one description call, in seconds.
	CallTimeout int `toml:"call_timeout"`
}

// Embed contains settings for the external tag-embedding tool.
type Embed struct {
	// ExifTool is the path or command name of the exiftool binary.
	ExifTool string `toml:"exiftool"`
}

// FTP contains settings for the stock-agency transfer endpoint.
type FTP struct {
	// Host is the endpoint in host:port form.
	Host string `toml:"host"`
	// DialTimeout bounds connection establishment, in seconds.
	DialTimeout int `toml:"dial_timeout"`
}

// Logging contains log output settings.
type Logging struct {
	Level string `toml:"level"`
}

// Config is the full service configuration.
type Config struct {
	Server  Server  `toml:"server"`
	Storage Storage `toml:"storage"`
	Gemini  Gemini  `toml:"gemini"`
	Embed   Embed   `toml:"embed"`
	FTP     FTP     `toml:"ftp"`
	Logging Logging `toml:"logging"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server:  Server{Port: 8080},
		Storage: Storage{Root: "/app/processed"},
		Gemini:  Gemini{Model: "gemini-2.0-flash", CallTimeout: 120},
		Embed:   Embed{ExifTool: "exiftool"},
		FTP:     FTP{Host: "ftp.shutterstock.com:21", DialTimeout: 30},
		Logging: Logging{Level: "info"},
	}
}

// Load reads the configuration file at path on top of the defaults.
// A missing file is not an error; the defaults are used as-is.
// Environment overrides are applied last.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// fall through to env overrides
	case err != nil:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("STOCK_STORAGE_ROOT"); v != "" {
		cfg.Storage.Root = v
	}
	if v := os.Getenv("STOCK_FTP_HOST"); v != "" {
		cfg.FTP.Host = v
	}
	if v := os.Getenv("STOCK_EXIFTOOL"); v != "" {
		cfg.Embed.ExifTool = v
	}
	if v := os.Getenv("STOCK_GEMINI_MODEL"); v != "" {
		cfg.Gemini.Model = v
	}
	if v := os.Getenv("STOCK_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
}

func (c Config) validate() error {
	if c.Storage.Root == "" {
		return errors.New("config: storage.root must not be empty")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server.port %d", c.Server.Port)
	}
	if c.Embed.ExifTool == "" {
		return errors.New("config: embed.exiftool must not be empty")
	}
	return nil
}

// GeminiTimeout returns the per-call vision timeout as a duration.
func (c Config) GeminiTimeout() time.Duration {
	if c.Gemini.CallTimeout <= 0 {
		return 120 * time.Second
	}
	return time.Duration(c.Gemini.CallTimeout) * time.Second
}

// FTPDialTimeout returns the transfer connection timeout as a duration.
func (c Config) FTPDialTimeout() time.Duration {
	if c.FTP.DialTimeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.FTP.DialTimeout) * time.Second
}

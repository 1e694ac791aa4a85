// Package idmapconf builds idmap.Options from a YAML or JSON document.
//
//	purge_interval: 30s
//	archive:
//	  backend: redis        # none | ristretto | bigcache | redis
//	  ttl: 10m
//	  codec: cbor           # json | cbor | msgpack | protobuf
//	  max_decode_bytes: 65536
//	  redis:
//	    addr: localhost:6379
//	    prefix: "app:prod:"
//	log:
//	  backend: zap          # slog | zap | logrus
//	  level: info
package idmapconf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

var (
	ErrUnsupportedFormat = errors.New("idmapconf: unsupported format")
	ErrLoadFailed        = errors.New("idmapconf: load failed")
	ErrParseFailed       = errors.New("idmapconf: parse failed")
	ErrInvalid           = errors.New("idmapconf: invalid config")
)

type Config struct {
	PurgeInterval time.Duration `koanf:"purge_interval"`
	Archive       ArchiveConfig `koanf:"archive"`
	Log           LogConfig     `koanf:"log"`
}

type ArchiveConfig struct {
	Backend        string        `koanf:"backend"`
	TTL            time.Duration `koanf:"ttl"`
	Codec          string        `koanf:"codec"`
	MaxDecodeBytes int           `koanf:"max_decode_bytes"`
	// Deterministic selects canonical encoding for cbor and protobuf.
	Deterministic bool `koanf:"deterministic"`

	Ristretto RistrettoConfig `koanf:"ristretto"`
	BigCache  BigCacheConfig  `koanf:"bigcache"`
	Redis     RedisConfig     `koanf:"redis"`
}

type RistrettoConfig struct {
	NumCounters int64 `koanf:"num_counters"`
	MaxCost     int64 `koanf:"max_cost"`
	BufferItems int64 `koanf:"buffer_items"`
	Metrics     bool  `koanf:"metrics"`
	Synchronous bool  `koanf:"synchronous"`
}

type BigCacheConfig struct {
	LifeWindow   time.Duration `koanf:"life_window"`
	Shards       int           `koanf:"shards"`
	HardMaxMB    int           `koanf:"hard_max_mb"`
	MaxEntrySize int           `koanf:"max_entry_size"`
}

type RedisConfig struct {
	Addr        string        `koanf:"addr"`
	Username    string        `koanf:"username"`
	Password    string        `koanf:"password"`
	DB          int           `koanf:"db"`
	Prefix      string        `koanf:"prefix"`
	DialTimeout time.Duration `koanf:"dial_timeout"`
}

type LogConfig struct {
	Backend string `koanf:"backend"`
	Level   string `koanf:"level"`
}

// Load parses data in the given format. Missing keys keep their defaults.
func Load(data []byte, format Format) (*Config, error) {
	var parser koanf.Parser
	switch format {
	case FormatYAML:
		parser = yaml.Parser()
	case FormatJSON:
		parser = json.Parser()
	default:
		return nil, ErrUnsupportedFormat
	}

	k := koanf.New(".")
	if len(data) > 0 {
		if err := k.Load(rawbytes.Provider(data), parser); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile detects the format from the extension (.yaml, .yml, .json).
func LoadFile(path string) (*Config, error) {
	var format Format
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = FormatYAML
	case ".json":
		format = FormatJSON
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	return Load(data, format)
}

func Default() *Config {
	return &Config{
		Archive: ArchiveConfig{
			Backend: "none",
			TTL:     10 * time.Minute,
			Codec:   "json",
			Ristretto: RistrettoConfig{
				NumCounters: 100_000,
				MaxCost:     64 << 20,
				BufferItems: 64,
			},
		},
		Log: LogConfig{Backend: "none", Level: "info"},
	}
}

func (c *Config) Validate() error {
	if c.PurgeInterval < 0 {
		return fmt.Errorf("%w: purge_interval must not be negative", ErrInvalid)
	}
	switch c.Archive.Backend {
	case "none", "ristretto", "bigcache":
	case "redis":
		if c.Archive.Redis.Addr == "" {
			return fmt.Errorf("%w: archive.redis.addr is required", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown archive backend %q", ErrInvalid, c.Archive.Backend)
	}
	switch c.Archive.Codec {
	case "json", "cbor", "msgpack", "protobuf":
	default:
		return fmt.Errorf("%w: unknown codec %q", ErrInvalid, c.Archive.Codec)
	}
	if c.Archive.MaxDecodeBytes < 0 {
		return fmt.Errorf("%w: archive.max_decode_bytes must not be negative", ErrInvalid)
	}
	switch c.Log.Backend {
	case "none", "slog", "zap", "logrus":
	default:
		return fmt.Errorf("%w: unknown log backend %q", ErrInvalid, c.Log.Backend)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalid, c.Log.Level)
	}
	return nil
}

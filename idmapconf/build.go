package idmapconf

import (
	"context"
	"fmt"
	"io"
	stdslog "log/slog"
	"os"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/idmap"
	c "github.com/unkn0wn-root/idmap/codec"
	logruslog "github.com/unkn0wn-root/idmap/log/logrus"
	slogadapter "github.com/unkn0wn-root/idmap/log/slog"
	zaplog "github.com/unkn0wn-root/idmap/log/zap"
	pr "github.com/unkn0wn-root/idmap/provider"
	bcprov "github.com/unkn0wn-root/idmap/provider/bigcache"
	rprov "github.com/unkn0wn-root/idmap/provider/redis"
	rcprov "github.com/unkn0wn-root/idmap/provider/ristretto"
)

type buildOptions struct {
	logOut io.Writer
	hooks  idmap.Hooks
}

type BuildOption func(*buildOptions)

// WithLogOutput sends log lines to w instead of stderr.
func WithLogOutput(w io.Writer) BuildOption {
	return func(o *buildOptions) {
		if w != nil {
			o.logOut = w
		}
	}
}

func WithHooks(h idmap.Hooks) BuildOption {
	return func(o *buildOptions) { o.hooks = h }
}

// Options builds idmap.Options. The archive provider it creates is owned by
// the cache and closed by Cache.Close.
func (cfg *Config) Options(opts ...BuildOption) (idmap.Options, error) {
	bo := &buildOptions{logOut: os.Stderr}
	for _, o := range opts {
		o(bo)
	}
	if err := cfg.Validate(); err != nil {
		return idmap.Options{}, err
	}

	out := idmap.Options{
		PurgeInterval: cfg.PurgeInterval,
		Hooks:         bo.hooks,
		ArchiveTTL:    cfg.Archive.TTL,
	}
	out.Logger = cfg.Log.logger(bo.logOut)

	p, err := cfg.Archive.provider()
	if err != nil {
		return idmap.Options{}, err
	}
	if p != nil {
		codec, err := cfg.Archive.codec()
		if err != nil {
			_ = p.Close(context.Background())
			return idmap.Options{}, err
		}
		out.Archive = p
		out.Codec = codec
	}
	return out, nil
}

func (a ArchiveConfig) provider() (pr.Provider, error) {
	switch a.Backend {
	case "ristretto":
		return rcprov.New(rcprov.Config{
			NumCounters: a.Ristretto.NumCounters,
			MaxCost:     a.Ristretto.MaxCost,
			BufferItems: a.Ristretto.BufferItems,
			Metrics:     a.Ristretto.Metrics,
			Synchronous: a.Ristretto.Synchronous,
		})
	case "bigcache":
		life := a.BigCache.LifeWindow
		if life <= 0 {
			life = a.TTL
		}
		return bcprov.New(bcprov.Config{
			LifeWindow:         life,
			Shards:             a.BigCache.Shards,
			HardMaxCacheSizeMB: a.BigCache.HardMaxMB,
			MaxEntrySize:       a.BigCache.MaxEntrySize,
		})
	case "redis":
		client := goredis.NewClient(&goredis.Options{
			Addr:        a.Redis.Addr,
			Username:    a.Redis.Username,
			Password:    a.Redis.Password,
			DB:          a.Redis.DB,
			DialTimeout: a.Redis.DialTimeout,
		})
		return rprov.New(rprov.Config{Client: client, Prefix: a.Redis.Prefix, CloseClient: true})
	case "none", "":
		return nil, nil
	}
	return nil, fmt.Errorf("%w: unknown archive backend %q", ErrInvalid, a.Backend)
}

func (a ArchiveConfig) codec() (c.Codec[idmap.Attrs], error) {
	var inner c.Codec[idmap.Attrs]
	switch a.Codec {
	case "json", "":
		inner = c.JSON[idmap.Attrs]{}
	case "cbor":
		cb, err := c.NewCBOR[idmap.Attrs](a.Deterministic)
		if err != nil {
			return nil, err
		}
		inner = cb
	case "msgpack":
		inner = c.Msgpack[idmap.Attrs]{}
	case "protobuf":
		inner = c.StructPB[idmap.Attrs]{Deterministic: a.Deterministic}
	default:
		return nil, fmt.Errorf("%w: unknown codec %q", ErrInvalid, a.Codec)
	}
	if a.MaxDecodeBytes > 0 {
		return c.Limit[idmap.Attrs]{Inner: inner, MaxDecode: a.MaxDecodeBytes}, nil
	}
	return inner, nil
}

func (l LogConfig) logger(w io.Writer) idmap.Logger {
	level := strings.ToLower(l.Level)
	switch l.Backend {
	case "slog":
		var lv stdslog.Level
		_ = lv.UnmarshalText([]byte(level))
		return slogadapter.Logger{L: stdslog.New(stdslog.NewJSONHandler(w, &stdslog.HandlerOptions{Level: lv}))}
	case "zap":
		lv, err := zapcore.ParseLevel(level)
		if err != nil {
			lv = zapcore.InfoLevel
		}
		enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		return zaplog.New(zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), lv)))
	case "logrus":
		lr := logrus.New()
		lr.SetOutput(w)
		lr.SetFormatter(&logrus.JSONFormatter{})
		if lv, err := logrus.ParseLevel(level); err == nil {
			lr.SetLevel(lv)
		}
		return logruslog.New(lr)
	}
	return nil
}

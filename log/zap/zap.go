// Package zap adapts a *zap.Logger to idmap.Logger.
package zap

import (
	"go.uber.org/zap"

	"github.com/unkn0wn-root/idmap"
)

var _ idmap.Logger = ZapLogger{}

type ZapLogger struct{ L *zap.Logger }

// New names the logger "idmap" so cache lines are easy to filter.
func New(l *zap.Logger) ZapLogger { return ZapLogger{L: l.Named("idmap")} }

func (z ZapLogger) Debug(msg string, f idmap.Fields) { z.L.Debug(msg, zf(f)...) }
func (z ZapLogger) Info(msg string, f idmap.Fields)  { z.L.Info(msg, zf(f)...) }
func (z ZapLogger) Warn(msg string, f idmap.Fields)  { z.L.Warn(msg, zf(f)...) }
func (z ZapLogger) Error(msg string, f idmap.Fields) { z.L.Error(msg, zf(f)...) }

func zf(f idmap.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok && k == "err" {
			out = append(out, zap.Error(err))
			continue
		}
		out = append(out, zap.Any(k, v))
	}
	return out
}

// Package logrus adapts a *logrus.Entry to idmap.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/idmap"
)

var _ idmap.Logger = LogrusLogger{}

type LogrusLogger struct{ E *logrus.Entry }

// New tags every line with component=idmap.
func New(l *logrus.Logger) LogrusLogger {
	return LogrusLogger{E: l.WithField("component", "idmap")}
}

func (l LogrusLogger) Debug(msg string, f idmap.Fields) { l.with(f).Debug(msg) }
func (l LogrusLogger) Info(msg string, f idmap.Fields)  { l.with(f).Info(msg) }
func (l LogrusLogger) Warn(msg string, f idmap.Fields)  { l.with(f).Warn(msg) }
func (l LogrusLogger) Error(msg string, f idmap.Fields) { l.with(f).Error(msg) }

func (l LogrusLogger) with(f idmap.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	return l.E.WithFields(logrus.Fields(f))
}

// Package logx wraps logrus with a small set of constructors that
// pre-populate the correlation fields used across the connection, TLS,
// and request lifecycles.
package logx

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the package-wide logger. SetVerbose raises it to debug level;
// callers otherwise use the constructors below rather than Log directly.
var Log = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = os.Stderr
	l.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	l.Level = logrus.InfoLevel
	return l
}

// SetVerbose switches the logger to debug level when verbose is true.
func SetVerbose(verbose bool) {
	if verbose {
		Log.Level = logrus.DebugLevel
	} else {
		Log.Level = logrus.InfoLevel
	}
}

// Conn returns an entry correlated to a connection id.
func Conn(id uint64) *logrus.Entry {
	return Log.WithField("conn", id)
}

// TLS returns an entry correlated to a connection id, tagged as TLS.
func TLS(id uint64) *logrus.Entry {
	return Log.WithFields(logrus.Fields{"conn": id, "component": "tls"})
}

// Request returns an entry correlated to a connection id, tagged as an
// HTTP request.
func Request(id uint64) *logrus.Entry {
	return Log.WithFields(logrus.Fields{"conn": id, "component": "http"})
}

// Err logs a structured *errs.Error-shaped failure at the given level
// without leaking a stack trace or request body.
func Err(entry *logrus.Entry, level logrus.Level, op string, code int, err error) {
	entry = entry.WithFields(logrus.Fields{"op": op, "code": code})
	switch level {
	case logrus.DebugLevel:
		entry.Debug(err)
	case logrus.WarnLevel:
		entry.Warn(err)
	default:
		entry.Error(err)
	}
}

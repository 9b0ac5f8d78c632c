package logging

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	once sync.Once
	base *logrus.Logger
)

// Base returns the process-wide logger, constructing it on first use with a
// text formatter and Info level. Callers needing JSON output (structured log
// shipping) call Configure.
func Base() *logrus.Logger {
	once.Do(func() {
		base = logrus.New()
		base.SetOutput(os.Stderr)
		base.SetLevel(logrus.InfoLevel)
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	})
	return base
}

// Configure sets the level and output of the process-wide logger, and a JSON
// formatter when json is true. It changes the logger Base returns, so it
// takes effect for every later log call whenever it is called.
func Configure(level logrus.Level, json bool, out io.Writer) {
	l := Base()
	l.SetLevel(level)
	l.SetOutput(out)
	if json {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
}

type loggerKey struct{}

// WithFields returns a context carrying a *logrus.Entry pre-populated with
// the given fields, so nested calls can add to it via FromContext(ctx).
func WithFields(ctx context.Context, fields logrus.Fields) context.Context {
	entry := FromContext(ctx).WithFields(fields)
	return context.WithValue(ctx, loggerKey{}, entry)
}

// FromContext returns the *logrus.Entry installed by WithFields, or a fresh
// entry off the base logger if none was installed.
func FromContext(ctx context.Context) *logrus.Entry {
	if ctx != nil {
		if entry, ok := ctx.Value(loggerKey{}).(*logrus.Entry); ok {
			return entry
		}
	}
	return logrus.NewEntry(Base())
}

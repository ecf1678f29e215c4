package logger

import (
	"context"

	"github.com/sirupsen/logrus"
)

type loggerContextKey struct{}

var defaultLogger = logrus.New()

// For returns a logrus entry scoped to the given context. Fields added to the
// context via NewContextWithFields are carried on every entry. A nil context
// returns an entry on the default logger.
func For(ctx context.Context) *logrus.Entry {
	if ctx == nil {
		return logrus.NewEntry(defaultLogger)
	}

	if entry, ok := ctx.Value(loggerContextKey{}).(*logrus.Entry); ok {
		return entry
	}

	return logrus.NewEntry(defaultLogger).WithContext(ctx)
}

// NewContextWithFields returns a context whose logger carries the given fields
func NewContextWithFields(ctx context.Context, fields logrus.Fields) context.Context {
	entry := For(ctx).WithFields(fields)
	return context.WithValue(ctx, loggerContextKey{}, entry)
}

// SetLoggerOptions applies options to the default logger
func SetLoggerOptions(optionsF func(logger *logrus.Logger)) {
	optionsF(defaultLogger)
}

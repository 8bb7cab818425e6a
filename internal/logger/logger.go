package logger

import (
	"strings"

	"go.uber.org/zap"
)

// New returns a JSON production logger for APP_ENV=production and a
// human-readable development logger for anything else.
func New(env string) (*zap.Logger, error) {
	if strings.EqualFold(strings.TrimSpace(env), "production") {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

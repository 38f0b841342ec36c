package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the shared application logger. Production runs emit JSON
// lines; dev keeps the default text formatter for readability.
func NewLogger(a App) *logrus.Logger {
	logg := logrus.New()
	logg.SetOutput(os.Stdout)
	if a.Env == "production" || a.Env == "prod" {
		logg.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(a.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logg.SetLevel(level)
	return logg
}

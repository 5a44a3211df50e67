package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var logg *logrus.Logger

func init() {
	logg = logrus.New()
	logg.SetFormatter(&logrus.JSONFormatter{})
	logg.SetLevel(logrus.InfoLevel)
	logg.SetOutput(os.Stdout)
}

// Get returns the process-wide logger.
func Get() *logrus.Logger {
	return logg
}

// SetLevel accepts logrus level names ("debug", "info", "warn", ...).
// Unknown values leave the current level untouched.
func SetLevel(level string) {
	if level == "" {
		return
	}
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		logg.WithField("level", level).Warn("unknown log level, keeping default")
		return
	}
	logg.SetLevel(lvl)
}

// LogError writes a uniform error record tagged with the module and function it came from.
func LogError(log *logrus.Logger, moduleName, funcName, context string, data any, err error) {
	fields := logrus.Fields{
		"module":   moduleName,
		"funcName": funcName,
		"context":  context,
	}
	if data != nil {
		fields["data"] = data
	}
	if err == nil {
		log.WithFields(fields).Error(context)
		return
	}
	log.WithFields(fields).Error(err.Error())
}

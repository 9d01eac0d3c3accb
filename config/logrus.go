package config

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	logg *logrus.Logger
)

func GetLogger() *logrus.Logger {
	return logg
}

func init() {
	logg = logrus.New()
	logg.SetFormatter(formatterFromEnv())
	logg.SetLevel(logLevelFromEnv())
	logg.SetOutput(os.Stdout)
}

// LOG_FORMAT=text gives readable output for local runs; JSON otherwise.
func formatterFromEnv() logrus.Formatter {
	if strings.EqualFold(strings.TrimSpace(os.Getenv("LOG_FORMAT")), "text") {
		return &logrus.TextFormatter{FullTimestamp: true}
	}
	return &logrus.JSONFormatter{}
}

// LOG_LEVEL=debug|info|warn|error (default error)
func logLevelFromEnv() logrus.Level {
	level, err := logrus.ParseLevel(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if err != nil {
		return logrus.ErrorLevel
	}
	return level
}

// LogError writes one structured error line. data is omitted when nil.
func LogError(logger *logrus.Logger, moduleName string, funcName string, context string, data any, err error) {
	if logger == nil || err == nil {
		return
	}
	fields := logrus.Fields{
		"module":   moduleName,
		"funcName": funcName,
		"context":  context,
	}
	if data != nil {
		fields["data"] = data
	}
	logger.WithFields(fields).Error(err.Error())
}

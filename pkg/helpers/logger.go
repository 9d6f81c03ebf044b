package helpers

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// LoggerOption overrides a NewLogger default.
type LoggerOption func(*logrus.Logger)

// WithOutput sends log lines to w instead of stdout.
func WithOutput(w io.Writer) LoggerOption {
	return func(l *logrus.Logger) { l.SetOutput(w) }
}

// WithLevel pins the level regardless of env.
func WithLevel(level logrus.Level) LoggerOption {
	return func(l *logrus.Logger) { l.SetLevel(level) }
}

// NewLogger builds the process logger. Development gets colourless text at
// debug level; every other env gets JSON at info level.
func NewLogger(appName, env string, opts ...LoggerOption) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	if env == "development" {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	for _, opt := range opts {
		opt(logger)
	}
	logger.WithFields(logrus.Fields{"app": appName, "env": env}).Debug("logger initialized")
	return logger
}

// LogError logs msg at error level with err folded into fields.
func LogError(logger *logrus.Logger, msg string, err error, fields logrus.Fields) {
	entry(logger, fields, err).Error(msg)
}

// LogWarn is LogError for conditions the process survives.
func LogWarn(logger *logrus.Logger, msg string, err error, fields logrus.Fields) {
	entry(logger, fields, err).Warn(msg)
}

func LogInfo(logger *logrus.Logger, msg string, fields logrus.Fields) {
	entry(logger, fields, nil).Info(msg)
}

func entry(logger *logrus.Logger, fields logrus.Fields, err error) *logrus.Entry {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	e := logger.WithFields(fields)
	if err != nil {
		e = e.WithError(err)
	}
	return e
}

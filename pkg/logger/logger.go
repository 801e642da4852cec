package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

// Init configures the process-wide logger. Level and format come from
// configuration; unknown values fall back to info/text.
func Init(level, format string) {
	switch level {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}

	if format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	log.SetOutput(os.Stdout)
}

func Debugf(format string, args ...interface{}) { log.Debugf(format, args...) }

func Infof(format string, args ...interface{}) { log.Infof(format, args...) }

func Warnf(format string, args ...interface{}) { log.Warnf(format, args...) }

func Errorf(format string, args ...interface{}) { log.Errorf(format, args...) }

func Fatalf(format string, args ...interface{}) { log.Fatalf(format, args...) }

func WithField(key string, value interface{}) *logrus.Entry { return log.WithField(key, value) }

package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is the process-wide logger. Observers that take a *logrus.Logger
// are handed this one.
var Logger *logrus.Logger

const timestampFormat = "2006-01-02T15:04:05.000Z07:00"

// Field keys shared by every component that logs about the catalogue, so
// pass, image and tagger entries can be correlated across packages.
const (
	FieldPassID  = "pass_id"
	FieldImageID = "image_id"
	FieldTagger  = "tagger"
	FieldPath    = "path"
)

func init() {
	Logger = logrus.New()
	Logger.SetOutput(os.Stdout)
	Configure(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
}

// Configure sets the level and the output format. format is "json" (the
// default) or "text"; an unknown level means info.
func Configure(level, format string) {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Logger.SetLevel(lvl)

	if strings.EqualFold(strings.TrimSpace(format), "text") {
		Logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: timestampFormat,
		})
		return
	}
	Logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: timestampFormat,
	})
}

// SetOutput redirects the logger, returning the previous writer.
func SetOutput(w io.Writer) io.Writer {
	prev := Logger.Out
	Logger.SetOutput(w)
	return prev
}

// ForPass starts an entry about one tagging pass.
func ForPass(passID string) *logrus.Entry {
	return Logger.WithField(FieldPassID, passID)
}

// ForImage starts an entry about one catalogued image.
func ForImage(imageID string) *logrus.Entry {
	return Logger.WithField(FieldImageID, imageID)
}

// ForTagger starts an entry about one registered tagger.
func ForTagger(name string) *logrus.Entry {
	return Logger.WithField(FieldTagger, name)
}

// ForUnit starts an entry about one (image, tagger) unit of a pass.
func ForUnit(passID, imageID, tagger string) *logrus.Entry {
	return Logger.WithFields(logrus.Fields{
		FieldPassID:  passID,
		FieldImageID: imageID,
		FieldTagger:  tagger,
	})
}

// WithFields creates a new entry with the given fields
func WithFields(fields logrus.Fields) *logrus.Entry {
	return Logger.WithFields(fields)
}

// WithField creates a new entry with a single field
func WithField(key string, value interface{}) *logrus.Entry {
	return Logger.WithField(key, value)
}

// WithError creates a new entry with an error field
func WithError(err error) *logrus.Entry {
	return Logger.WithError(err)
}

// Info logs an info message
func Info(msg string) {
	Logger.Info(msg)
}

package log

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

type Level logrus.Level

const (
	ErrorLevel = Level(logrus.ErrorLevel)
	WarnLevel  = Level(logrus.WarnLevel)
	InfoLevel  = Level(logrus.InfoLevel)
	DebugLevel = Level(logrus.DebugLevel)
)

// Fields is a set of structured key/values attached to an entry.
type Fields = logrus.Fields

type Entry = logrus.Entry

var Logger = logrus.New()

var textFormatter = &logrus.TextFormatter{
	DisableLevelTruncation: true,
	PadLevelText:           true,
	TimestampFormat:        "2006/01/02 15:04:05",
	FullTimestamp:          true,
}

func init() {
	Logger.Formatter = textFormatter
}

// SetFormat switches between the human readable "text" output and one JSON
// object per line ("json").
func SetFormat(format string) error {
	switch format {
	case "text":
		Logger.SetFormatter(textFormatter)
	case "json":
		Logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	return nil
}

func SetLevel(level Level) {
	Logger.SetLevel(logrus.Level(level))
}

func SetOutput(w io.Writer) {
	Logger.SetOutput(w)
}

// Writer returns a pipe that logs each written line at the given level.
// The caller must close it.
func Writer(level Level) *io.PipeWriter {
	return Logger.WriterLevel(logrus.Level(level))
}

func WithFields(fields Fields) *Entry {
	return Logger.WithFields(fields)
}

func Log(level Level, args ...any) {
	Logger.Logln(logrus.Level(level), args...)
}

func Debugf(format string, args ...any) {
	Logger.Debugf(format, args...)
}

func Infof(format string, args ...any) {
	Logger.Infof(format, args...)
}
func Info(args ...any) {
	Logger.Infoln(args...)
}

func Warn(args ...any) {
	Logger.Warnln(args...)
}

func Errorf(format string, args ...any) {
	Logger.Errorf(format, args...)
}

func Fatal(args ...any) {
	Logger.Fatalln(args...)
}

// Package logging builds the logrus loggers shared by the migration components.
package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// New returns a text logger writing to out, at Debug level when debug is set and Info
// otherwise.
func New(out io.Writer, debug bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	l.SetLevel(logrus.InfoLevel)
	if debug {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

var discard = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

// OrDiscard lets components treat a nil logger as "log nothing".
func OrDiscard(l *logrus.Logger) *logrus.Logger {
	if l == nil {
		return discard
	}
	return l
}

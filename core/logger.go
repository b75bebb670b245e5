package core

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger returns the server logger: JSON lines outside dev, human text
// in dev. debug lowers the level to Debug.
func NewLogger(env string, debug bool) *logrus.Logger {
	return newLogger(os.Stderr, env, debug)
}

func newLogger(out io.Writer, env string, debug bool) *logrus.Logger {
	lg := logrus.New()
	lg.SetOutput(out)

	if env == "dev" {
		lg.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		lg.SetFormatter(&logrus.JSONFormatter{})
	}

	lg.SetLevel(logrus.InfoLevel)
	if debug {
		lg.SetLevel(logrus.DebugLevel)
	}
	return lg
}

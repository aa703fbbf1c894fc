package qalarm

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

var logger = log.NewWithOptions(os.Stderr, log.Options{
	Prefix:          "qalarm",
	ReportTimestamp: true,
	Level:           log.InfoLevel,
})

// SetLogLevel accepts debug, info, warn, error or fatal.
func SetLogLevel(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	logger.SetLevel(lvl)
	return nil
}

func SetLogOutput(w io.Writer) {
	logger.SetOutput(w)
}

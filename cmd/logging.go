package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/jrick/logrotate/rotator"
	"github.com/sirupsen/logrus"
)

// Log files roll at 10 MB, keeping 3 old files.
const (
	logRollKB = 10 * 1024
	logRolls  = 3
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// setupLogging sets the logrus level and, when file is set, tees log output
// to stderr and a rotated file. The returned closer flushes the file.
func setupLogging(level, file string) (io.Closer, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logrus.SetLevel(lvl)
	if file == "" {
		return nopCloser{}, nil
	}
	r, err := rotator.New(file, logRollKB, false, logRolls)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	logrus.SetOutput(io.MultiWriter(os.Stderr, r))
	return r, nil
}

package app

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

const logFile = "sprite-suite.log"

// levelWriter drops events below min.
type levelWriter struct {
	io.Writer
	min zerolog.Level
}

func (w levelWriter) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	if l < w.min {
		return len(p), nil
	}
	return w.Write(p)
}

// InitLogger installs the global logger. Console output is human-readable
// at the configured level; when logDir is set, a JSON file rotated by
// lumberjack additionally receives everything from debug up. The returned
// cleanup closes the file.
func InitLogger(logDir, level string, console io.Writer) (func(), error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "log level %q", level)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if console == nil {
		console = os.Stderr
	}
	writers := []io.Writer{
		levelWriter{Writer: zerolog.ConsoleWriter{Out: console, TimeFormat: time.TimeOnly}, min: lvl},
	}
	cleanup := func() {}

	if logDir != "" {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, errors.Wrap(err, "create log dir")
		}
		lj := &lumberjack.Logger{
			Filename:   filepath.Join(logDir, logFile),
			MaxSize:    10, // MB
			MaxBackups: 3,
			LocalTime:  true,
		}
		writers = append(writers, levelWriter{Writer: lj, min: zerolog.DebugLevel})
		cleanup = func() {
			if err := lj.Close(); err != nil {
				log.Error().Err(err).Msg("close log file")
			}
		}
		lvl = zerolog.DebugLevel
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(lvl).
		With().Timestamp().Logger()
	return cleanup, nil
}

package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"reid-worker-go/internal/config"
)

// Setup configures the global zerolog logger. Extra writers (logdy) are teed
// after the console writer.
func Setup(level string, extra ...io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339

	writers := []io.Writer{zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}}
	writers = append(writers, extra...)
	log.Logger = zerolog.New(io.MultiWriter(writers...)).With().Timestamp().Logger()

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		log.Warn().Str("level", level).Msg("Invalid log level, using info")
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func NewServiceLogger(cfg *config.Config, service string) zerolog.Logger {
	return log.With().Str("worker_id", cfg.WorkerID).Str("service", service).Logger()
}

// WithStream tags a logger with the video stream it is working on
func WithStream(base zerolog.Logger, stream string, index int) zerolog.Logger {
	return base.With().Str("stream", stream).Int("stream_index", index).Logger()
}

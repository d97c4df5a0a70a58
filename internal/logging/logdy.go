package logging

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/logdyhq/logdy-core/logdy"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/apambalik/RR-Traffic-Analysis-System/internal/config"
)

type logdyWriter struct {
	logger logdy.Logdy
}

func (w *logdyWriter) Write(p []byte) (n int, err error) {
	// Forward raw line to Logdy UI
	w.logger.LogString(string(p))
	return len(p), nil
}

// StartLogdy starts embedded Logdy web UI and returns a writer to tee logs, plus the UI URL
func StartLogdy(cfg *config.Config) (io.Writer, string, error) {
	portStr := strconv.Itoa(cfg.LogdyPort)
	ld := logdy.InitializeLogdy(logdy.Config{
		ServerIp:   cfg.LogdyHost,
		ServerPort: portStr,
	}, nil)

	url := fmt.Sprintf("http://%s:%s", cfg.LogdyHost, portStr)
	return &logdyWriter{logger: ld}, url, nil
}

// Setup configures the global logger: console output on stderr, the level
// from cfg.LogLevel and, when enabled, a JSON tee into the Logdy UI.
func Setup(cfg *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	console := zerolog.ConsoleWriter{Out: os.Stderr}
	log.Logger = log.Output(console)

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("Invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if !cfg.LogdyEnabled {
		return
	}

	w, url, err := StartLogdy(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Logdy UI disabled")
		return
	}
	log.Logger = zerolog.New(zerolog.MultiLevelWriter(console, w)).With().Timestamp().Logger()
	log.Info().Str("url", url).Msg("Logdy UI available")
}

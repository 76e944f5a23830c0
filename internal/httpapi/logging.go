package httpapi

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// zlog is the structured logger for the HTTP layer. Nop until SetLogger.
var zlog = zerolog.Nop()

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = l.With().Str("component", "http").Logger() }

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch s {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// defaultLogLevel is read once from CHATD_REQUEST_LOG.
var defaultLogLevel = parseLevel(os.Getenv("CHATD_REQUEST_LOG"))

// SetRequestLogLevel overrides the default per-request log level.
func SetRequestLogLevel(s string) { defaultLogLevel = parseLevel(s) }

func requestLogLevel(r *http.Request) LogLevel {
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

// chatLog records the start and end of one chat request at the level the
// request asked for.
type chatLog struct {
	lvl   LogLevel
	rid   string
	path  string
	model string
	start time.Time
}

func newChatLog(r *http.Request, model string) *chatLog {
	cl := &chatLog{
		lvl:   requestLogLevel(r),
		rid:   middleware.GetReqID(r.Context()),
		path:  r.URL.Path,
		model: model,
		start: time.Now(),
	}
	if cl.lvl >= LevelInfo {
		zlog.Info().Str("path", cl.path).Str("model", model).Str("request_id", cl.rid).Msg("chat start")
	}
	return cl
}

// fragment logs a streamed fragment at debug level.
func (cl *chatLog) fragment(s string) {
	if cl.lvl >= LevelDebug {
		zlog.Debug().Str("request_id", cl.rid).Str("fragment", s).Msg("chat>")
	}
}

func (cl *chatLog) end(status int, err error) {
	if cl.lvl == LevelOff || (cl.lvl == LevelError && err == nil) {
		return
	}
	ev := zlog.Info()
	if err != nil {
		ev = zlog.Warn().Err(err)
	}
	ev.Int("status", status).Dur("dur", time.Since(cl.start)).Str("model", cl.model).Str("request_id", cl.rid).Msg("chat end")
}

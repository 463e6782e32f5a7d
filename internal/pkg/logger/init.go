package logger

import (
	"Parley/internal/api/config"
	"io"
	log "log/slog"
	"net"
	"os"
	"strings"
)

var LogWriter io.Writer = os.Stdout

// ParseLevel 解析配置中的日志级别，无法识别时使用 info
func ParseLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case "debug":
		return log.LevelDebug
	case "warn", "warning":
		return log.LevelWarn
	case "error":
		return log.LevelError
	}
	return log.LevelInfo
}

// NewHandler 构建带 trace_id 注入的 Handler，remote 不为 nil 时额外输出带 trace_id 的记录
func NewHandler(stdout io.Writer, remote io.Writer, level log.Level) log.Handler {
	opts := &log.HandlerOptions{Level: level}
	var finalHandler log.Handler = log.NewJSONHandler(stdout, opts)

	if remote != nil {
		hRemote := log.NewJSONHandler(remote, opts).
			WithAttrs([]log.Attr{log.String("service", "parley")})
		finalHandler = NewTeeHandler(finalHandler, &RemoteFilterHandler{next: hRemote})
	}

	return &ContextHandler{finalHandler}
}

func InitLogger() {
	cfg := config.Cfg.Log
	level := ParseLevel(cfg.Level)

	var remote io.Writer
	if cfg.RemoteAddr != "" {
		conn, err := net.Dial("tcp", cfg.RemoteAddr)
		if err == nil {
			remote = conn
		} else {
			log.Warn("Failed to connect to remote log sink, logging to stdout only", "err", err)
		}
	}

	log.SetDefault(log.New(NewHandler(os.Stdout, remote, level)))
}

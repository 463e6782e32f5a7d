package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
)

// accessRecord 与 slog JSON 输出保持相同的字段名
type accessRecord struct {
	Time    string `json:"time"`
	Level   string `json:"level"`
	Msg     string `json:"msg"`
	TraceID string `json:"trace_id,omitempty"`
	UserID  string `json:"user_id,omitempty"`
	Service string `json:"service"`
	Method  string `json:"method"`
	Path    string `json:"path"`
	Status  int    `json:"status"`
	Latency string `json:"latency"`
}

// SetupGin 访问日志与 panic 恢复，健康检查不记录
func SetupGin(r *gin.Engine) {
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Output:    LogWriter,
		SkipPaths: []string{"/api/ping"},
		Formatter: func(p gin.LogFormatterParams) string {
			rec := accessRecord{
				Time:    p.TimeStamp.Format(time.RFC3339),
				Level:   "INFO",
				Msg:     "GIN_ACCESS",
				TraceID: keyString(p, TraceIDKey),
				UserID:  keyString(p, UserIDKey),
				Service: "parley",
				Method:  p.Method,
				Path:    p.Path,
				Status:  p.StatusCode,
				Latency: p.Latency.String(),
			}
			if p.StatusCode >= 500 {
				rec.Level = "ERROR"
			}
			data, _ := json.Marshal(rec)
			return string(data) + "\n"
		},
	}))

	r.Use(gin.Recovery())
}

func keyString(p gin.LogFormatterParams, key string) string {
	if v, ok := p.Keys[key].(string); ok {
		return v
	}
	if p.Request != nil {
		if v, ok := p.Request.Context().Value(key).(string); ok {
			return v
		}
	}
	return ""
}

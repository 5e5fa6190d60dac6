package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// responseMeta はhttp.ResponseWriterをラップし、ステータスコードと
// 書き込みバイト数を記録する。
type responseMeta struct {
	http.ResponseWriter
	status int
	bytes  int64
}

// WriteHeader は最初に設定されたステータスコードのみを記録する。
func (rm *responseMeta) WriteHeader(code int) {
	if rm.status == 0 {
		rm.status = code
	}
	rm.ResponseWriter.WriteHeader(code)
}

// Write はWriteHeader未呼び出しの場合に暗黙の200を記録する。
func (rm *responseMeta) Write(b []byte) (int, error) {
	if rm.status == 0 {
		rm.status = http.StatusOK
	}
	n, err := rm.ResponseWriter.Write(b)
	rm.bytes += int64(n)
	return n, err
}

// levelForStatus はステータスコードに応じたログレベルを返す。
// 5xxはError、4xxはWarn、それ以外はInfo。
func levelForStatus(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// NewLoggingMiddleware はリクエストのJSON構造化ログを出力するミドルウェアを返す。
// ログにはmethod、path、status、duration_ms、bytes、
// user_id（認証済みの場合）を含む。
func NewLoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rm := &responseMeta{ResponseWriter: w}
			next.ServeHTTP(rm, r)

			status := rm.status
			if status == 0 {
				status = http.StatusOK
			}

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000.0),
				slog.Int64("bytes", rm.bytes),
			}

			if userID, err := UserIDFromContext(r.Context()); err == nil && userID != "" {
				attrs = append(attrs, slog.String("user_id", userID))
			}

			logger.LogAttrs(r.Context(), levelForStatus(status), "http_request", attrs...)
		})
	}
}

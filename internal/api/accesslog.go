package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/eugenenazirov/service-starter/internal/config"
)

const (
	maskedValue     = "******"
	truncatedSuffix = "... [truncated]"
	fileNotLogged   = "<file content not logged>"
)

var fileContentTypes = []string{
	"multipart/form-data",
	"application/octet-stream",
	"application/pdf",
	"application/zip",
	"application/x-zip-compressed",
	"image/",
	"audio/",
	"video/",
	"application/vnd.openxmlformats-officedocument",
	"application/vnd.ms-excel",
	"application/msword",
	"application/vnd.ms-powerpoint",
}

var filePathKeywords = []string{"/upload", "/file", "/download", "/attachment"}

// accessLog holds the request logging settings derived from
// config.HTTPLoggingConfig.
type accessLog struct {
	requestBody  bool
	responseBody bool
	maxBody      int
	sensitive    map[string]struct{}
	exclude      []string
}

func newAccessLog(cfg config.HTTPLoggingConfig) accessLog {
	a := accessLog{
		requestBody:  cfg.RequestBody,
		responseBody: cfg.ResponseBody,
		maxBody:      cfg.MaxBodyLength,
		sensitive:    make(map[string]struct{}, len(cfg.SensitiveFields)),
		exclude:      cfg.ExcludePatterns,
	}
	for _, field := range cfg.SensitiveFields {
		a.sensitive[strings.ToLower(field)] = struct{}{}
	}
	return a
}

func (a accessLog) isSensitive(key string) bool {
	_, ok := a.sensitive[strings.ToLower(key)]
	return ok
}

func loggingMiddleware(logger *zap.Logger, settings accessLog, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if matchAny(r.URL.Path, settings.exclude) {
			next.ServeHTTP(w, r)
			return
		}

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("client", r.RemoteAddr),
			zap.Any("query", settings.query(r)),
			zap.Any("headers", settings.headers(r.Header)),
		}
		if body := settings.readRequestBody(r); body != "" {
			fields = append(fields, zap.String("request_body", body))
		}

		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		if settings.responseBody {
			rec.body = &bytes.Buffer{}
		}
		start := time.Now()
		next.ServeHTTP(rec, r)

		fields = append(fields,
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", requestIDFromContext(r.Context())),
		)
		if body := settings.responseBodyField(rec); body != "" {
			fields = append(fields, zap.String("response_body", body))
		}
		logger.Info("request completed", fields...)
	})
}

func (a accessLog) query(r *http.Request) map[string]string {
	out := make(map[string]string)
	for key, values := range r.URL.Query() {
		if a.isSensitive(key) {
			out[key] = maskedValue
			continue
		}
		out[key] = strings.Join(values, ",")
	}
	return out
}

func (a accessLog) headers(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for key, values := range h {
		if a.isSensitive(key) || strings.EqualFold(key, "Authorization") {
			out[key] = maskedValue
			continue
		}
		out[key] = strings.Join(values, ",")
	}
	return out
}

// readRequestBody returns the loggable body and restores r.Body for the next
// handler.
func (a accessLog) readRequestBody(r *http.Request) string {
	if !a.requestBody || r.Body == nil || r.Body == http.NoBody {
		return ""
	}
	contentType := strings.ToLower(r.Header.Get("Content-Type"))
	if isFileContentType(contentType) || hasFileKeyword(r.URL.Path) {
		return a.fileSummary("file_upload", contentType)
	}

	raw, err := io.ReadAll(r.Body)
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil || len(raw) == 0 {
		return ""
	}
	return a.formatBody(raw)
}

func (a accessLog) responseBodyField(rec *responseRecorder) string {
	if rec.body == nil {
		return ""
	}
	h := rec.Header()
	contentType := strings.ToLower(h.Get("Content-Type"))
	disposition := strings.ToLower(h.Get("Content-Disposition"))
	if isFileContentType(contentType) || strings.Contains(disposition, "attachment") || strings.Contains(disposition, "inline") {
		return a.fileSummary("file_download", contentType)
	}
	if rec.body.Len() == 0 {
		return ""
	}
	return a.formatBody(rec.body.Bytes())
}

func (a accessLog) fileSummary(kind, contentType string) string {
	if contentType == "" {
		contentType = "unknown"
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(map[string]any{
		kind + "_info": map[string]string{"type": kind, "content_type": contentType},
		"message":      fileNotLogged,
	})
	return strings.TrimSpace(buf.String())
}

// formatBody masks sensitive keys in JSON payloads and truncates the result.
func (a accessLog) formatBody(raw []byte) string {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err == nil {
		if masked, err := json.Marshal(a.mask(payload)); err == nil {
			return a.truncate(string(masked))
		}
	}
	return a.truncate(string(raw))
}

func (a accessLog) mask(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for key, value := range t {
			if a.isSensitive(key) {
				out[key] = maskedValue
				continue
			}
			out[key] = a.mask(value)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = a.mask(item)
		}
		return out
	default:
		return v
	}
}

func (a accessLog) truncate(s string) string {
	if a.maxBody <= 0 || len(s) <= a.maxBody {
		return s
	}
	cut := a.maxBody
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + truncatedSuffix
}

func isFileContentType(contentType string) bool {
	for _, prefix := range fileContentTypes {
		if strings.HasPrefix(contentType, prefix) {
			return true
		}
	}
	return false
}

func hasFileKeyword(path string) bool {
	path = strings.ToLower(path)
	for _, keyword := range filePathKeywords {
		if strings.Contains(path, keyword) {
			return true
		}
	}
	return false
}

type responseRecorder struct {
	http.ResponseWriter
	status int
	body   *bytes.Buffer
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	if r.body != nil {
		r.body.Write(p)
	}
	return r.ResponseWriter.Write(p)
}

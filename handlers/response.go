package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"freelance-hub/backend/apperror"
	"freelance-hub/backend/middleware"
	"freelance-hub/backend/models"

	"github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
)

// sendJSONError 統一發送 JSON 格式錯誤響應
func sendJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(models.ErrorResponse{Message: message}); err != nil {
		log.Printf("Failed to write error response: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

func writeMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: message})
}

// writeError 將 apperror 對應到 HTTP 狀態碼；非預期錯誤只回傳通用訊息，細節寫入日誌與 Sentry
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperror.KindOf(err)
	status := apperror.HTTPStatus(kind)

	if kind == apperror.KindInternal {
		requestID := w.Header().Get(middleware.RequestIDHeader)
		log.WithFields(log.Fields{
			"requestId": requestID,
			"method":    r.Method,
			"path":      r.URL.Path,
			"error":     err,
		}).Error("Request failed")

		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("request_id", requestID)
			scope.SetTag("route", r.URL.Path)
			scope.SetRequest(r)
			sentry.CaptureException(err)
		})
	}
	sendJSONError(w, apperror.PublicMessage(err), status)
}

// decodeJSON 解析請求體；空的或格式錯誤的 JSON 都視為驗證錯誤
func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.Validation("request body is required")
		}
		return apperror.Validation("invalid request body")
	}
	return nil
}

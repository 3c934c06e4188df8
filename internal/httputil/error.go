package httputil

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/AdamBeresnev/tourney-registration/internal/apperrors"
)

// ErrorBody is the JSON shape of every error and policy rejection.
type ErrorBody struct {
	Error       string  `json:"error"`
	Message     string  `json:"message,omitempty"`
	RetryAfterS *int    `json:"retry_after_s,omitempty"`
	Expected    *string `json:"expected,omitempty"`
	Current     *string `json:"current,omitempty"`
}

func InternalServerError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	JSON(w, http.StatusInternalServerError, ErrorBody{Error: "INTERNAL_ERROR", Message: "Internal Server Error"})
}

// Failed logs err and answers 500 with a fixed code and a generic message.
func Failed(w http.ResponseWriter, code string, err error) {
	slog.Error("request failed", "code", code, "error", err)
	JSON(w, http.StatusInternalServerError, ErrorBody{Error: code, Message: "Internal Server Error"})
}

func BadRequest(w http.ResponseWriter, code, msg string, err error) {
	if err != nil {
		slog.Warn("bad request", "message", msg, "error", err)
	} else {
		slog.Warn("bad request", "message", msg)
	}
	JSON(w, http.StatusBadRequest, ErrorBody{Error: code, Message: msg})
}

func NotFound(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("not found", "message", msg, "error", err)
	} else {
		slog.Warn("not found", "message", msg)
	}
	JSON(w, http.StatusNotFound, ErrorBody{Error: string(apperrors.KindNotFound), Message: msg})
}

// Reject writes a policy rejection. These are expected outcomes and are not
// logged as errors.
func Reject(w http.ResponseWriter, status int, body ErrorBody) {
	JSON(w, status, body)
}

// Error maps an application error to its HTTP status. Errors without a kind
// are unexpected: they are logged and answered with a generic 500.
func Error(w http.ResponseWriter, msg string, err error) {
	kind := apperrors.KindOf(err)
	if kind == "" {
		InternalServerError(w, msg, err)
		return
	}
	var appErr *apperrors.Error
	errors.As(err, &appErr)

	switch kind {
	case apperrors.KindNotFound:
		NotFound(w, appErr.Message, appErr.Cause)
	case apperrors.KindInvalidSession:
		JSON(w, http.StatusUnauthorized, ErrorBody{Error: "UNAUTHORIZED", Message: appErr.Message})
	case apperrors.KindForbidden:
		JSON(w, http.StatusForbidden, ErrorBody{Error: string(appErr.Kind), Message: appErr.Message})
	case apperrors.KindThrottled:
		retry, _ := apperrors.RetryAfter(err)
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		JSON(w, http.StatusTooManyRequests, ErrorBody{Error: string(appErr.Kind), Message: appErr.Message, RetryAfterS: &retry})
	case apperrors.KindReauthRequired:
		slog.Info("re-authentication required", "message", appErr.Message, "error", appErr.Cause)
		JSON(w, http.StatusUnauthorized, ErrorBody{Error: string(appErr.Kind), Message: appErr.Message})
	case apperrors.KindUpstream:
		slog.Error(msg, "error", err)
		JSON(w, http.StatusBadGateway, ErrorBody{Error: string(appErr.Kind), Message: appErr.Message})
	default:
		InternalServerError(w, msg, err)
	}
}

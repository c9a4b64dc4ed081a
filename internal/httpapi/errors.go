package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"asamanthinks/internal/usecase"
	"asamanthinks/internal/voice"
)

const codeNotFound = "NOT_FOUND"

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func statusFor(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest
	case usecase.ErrorPermissionDenied:
		return http.StatusForbidden
	case usecase.ErrorUpstream, usecase.ErrorMalformedResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// asUseCaseError folds recorder errors into the usecase taxonomy.
func asUseCaseError(err error) *usecase.Error {
	var ucErr *usecase.Error
	if errors.As(err, &ucErr) {
		return ucErr
	}
	switch {
	case errors.Is(err, voice.ErrPermissionDenied):
		return usecase.NewError(usecase.ErrorPermissionDenied, "microphone_denied", err)
	case errors.Is(err, voice.ErrNotRecording):
		return usecase.NewError(usecase.ErrorInvalidInput, "not_recording", err)
	case errors.Is(err, voice.ErrAlreadyRecording):
		return usecase.NewError(usecase.ErrorInvalidInput, "already_recording", err)
	}
	return usecase.NewError(usecase.ErrorInternal, "unexpected_error", err)
}

func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	ucErr := asUseCaseError(err)
	status := statusFor(ucErr.Code)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "code", ucErr.Code, "reason", ucErr.Reason, "err", ucErr.Err)
	} else {
		log.Warn("request rejected", "code", ucErr.Code, "reason", ucErr.Reason)
	}
	writeJSON(w, status, errorResponse{Error: string(ucErr.Code), Message: ucErr.Reason})
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusNotFound, errorResponse{Error: codeNotFound, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

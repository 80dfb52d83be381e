// Package respond writes JSON responses and maps domain errors to status
// codes.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gymcoding/invoice-web/query"
	"github.com/gymcoding/invoice-web/record"
)

const (
	MsgNotFound       = "견적서를 찾을 수 없습니다."
	MsgInvalidData    = "유효하지 않은 견적서 데이터입니다."
	MsgUpstream       = "견적서 저장소 연결 오류가 발생했습니다."
	MsgInvalidRequest = "잘못된 요청입니다."
	MsgInternal       = "요청을 처리하는 중 오류가 발생했습니다."
)

type errorBody struct {
	Error string `json:"error"`
}

// JSON writes v with status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Error writes {"error": msg} with status.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, errorBody{Error: msg})
}

// FromError maps err to a status code and a user-facing message. Internal
// details never leave the process.
func FromError(err error) (int, string) {
	var failure *query.Failure
	switch {
	case errors.Is(err, query.ErrInvalidFilters):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &failure):
		return http.StatusBadGateway, failure.Message
	case errors.Is(err, record.ErrNotFound):
		return http.StatusNotFound, MsgNotFound
	case errors.Is(err, record.ErrInvalidData):
		return http.StatusUnprocessableEntity, MsgInvalidData
	case errors.Is(err, record.ErrTransient):
		return http.StatusBadGateway, MsgUpstream
	}
	return http.StatusInternalServerError, MsgInternal
}

// Err writes the response FromError picks for err and logs server-side
// failures.
func Err(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, msg := FromError(err)
	if status >= http.StatusInternalServerError && logger != nil {
		logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.Any("error", err),
		)
	}
	Error(w, status, msg)
}

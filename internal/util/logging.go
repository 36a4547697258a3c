package util

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"restaurant-auth/internal/model/requestresponse"
)

func LogError(message string, err error) error {
	slog.Error(message, "error", err)
	return fmt.Errorf("%s: %w", message, err)
}

func WriteError(w http.ResponseWriter, statusCode int, code string, message string) {
	WriteJSON(w, statusCode, requestresponse.ErrorResponse{
		Error: requestresponse.ErrorDetail{
			Status: statusCode,
			Code:   code,
			Text:   message,
		},
	})
}

func WriteJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("ошибка кодирования ответа", "error", err)
	}
}

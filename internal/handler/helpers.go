package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"restaurant-auth/internal/model"
	"restaurant-auth/internal/model/requestresponse"
	"restaurant-auth/internal/util"
	"strconv"
	"time"
)

const maxBodyBytes = 1 << 20

// decodeJSON : пустое тело допустимо, если allowEmpty
func decodeJSON(w http.ResponseWriter, r *http.Request, target interface{}, allowEmpty bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(target)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return nil
	}

	sendErrorResponse(w, http.StatusBadRequest, model.CodeValidationError, "некорректный JSON")
	return err
}

func sendErrorResponse(w http.ResponseWriter, statusCode int, code string, message string) {
	util.WriteError(w, statusCode, code, message)
}

func statusForCode(code string) int {
	switch code {
	case model.CodeValidationError:
		return http.StatusBadRequest
	case model.CodeInvalidCredentials, model.CodeInvalidToken, model.CodeSessionRevoked:
		return http.StatusUnauthorized
	case model.CodeTokenReuseDetected, model.CodeForbidden:
		return http.StatusForbidden
	case model.CodeSessionNotFound:
		return http.StatusNotFound
	case model.CodeRateLimited:
		return http.StatusTooManyRequests
	case model.CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func messageForCode(code string) string {
	switch code {
	case model.CodeValidationError:
		return "некорректный запрос"
	case model.CodeInvalidCredentials:
		return "неверный логин или пароль"
	case model.CodeInvalidToken:
		return "невалидный токен"
	case model.CodeSessionRevoked:
		return "сессия отозвана"
	case model.CodeTokenReuseDetected:
		return "обнаружено повторное использование токена, сессия отозвана"
	case model.CodeForbidden:
		return "доступ запрещён"
	case model.CodeSessionNotFound:
		return "сессия не найдена"
	case model.CodeStoreUnavailable:
		return "сервис временно недоступен"
	default:
		return "внутренняя ошибка сервера"
	}
}

// sendServiceError : ответ по коду таксономии ошибки сервиса
func sendServiceError(w http.ResponseWriter, err error) {
	code := model.CodeOf(err)
	message := messageForCode(code)
	if code == model.CodeValidationError {
		message = err.Error()
	}
	sendErrorResponse(w, statusForCode(code), code, message)
}

func setRateLimitHeaders(w http.ResponseWriter, result model.LimitResult) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func sendRateLimited(w http.ResponseWriter, err error) {
	var limitErr *model.RateLimitError
	if errors.As(err, &limitErr) {
		w.Header().Set("Retry-After", strconv.Itoa(limitErr.RetryAfter(time.Now())))
	}
	sendErrorResponse(w, http.StatusTooManyRequests, model.CodeRateLimited, "слишком много попыток, повторите позже")
}

func sendRefreshFailure(w http.ResponseWriter, err error) {
	code := model.CodeOf(err)
	status := statusForCode(code)

	switch code {
	case model.CodeTokenReuseDetected:
		sendErrorResponse(w, status, code, messageForCode(code))
	case model.CodeInvalidToken, model.CodeSessionRevoked:
		util.WriteJSON(w, http.StatusUnauthorized, requestresponse.ErrorResponse{
			Error: requestresponse.ErrorDetail{
				Status: http.StatusUnauthorized,
				Code:   "REFRESH_FAILED",
				Reason: code,
				Text:   "не удалось обновить токены",
			},
		})
	default:
		sendServiceError(w, err)
	}
}

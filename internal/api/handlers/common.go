package handlers

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"
)

// json с поведением stdlib, но быстрее на известных типах
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrorResponse стандартный формат ответа об ошибке для всех API endpoints
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// respondWithJSON сериализует payload и пишет его с указанным статусом
func respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// respondWithError пишет стандартный ответ об ошибке
func respondWithError(w http.ResponseWriter, status int, code, message, details string) {
	respondWithJSON(w, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"metalex/internal/repository"
	"metalex/internal/service"
)

// MatchTrigger определяет интерфейс сервиса матчинга для handler'а
type MatchTrigger interface {
	TriggerMatch(ctx context.Context, orderID string) (*service.MatchOutcome, error)
}

// MatchHandler - входная точка триггера матчинга
//
// Endpoints:
// - POST /api/v1/match - "ордер изменился, попробуй сматчить"
type MatchHandler struct {
	matchService MatchTrigger
}

// NewMatchHandler создает новый MatchHandler
func NewMatchHandler(matchService MatchTrigger) *MatchHandler {
	return &MatchHandler{matchService: matchService}
}

// TriggerRequest структура запроса триггера
type TriggerRequest struct {
	OrderID string `json:"order_id"`
}

// Trigger обрабатывает событие изменения ордера
// POST /api/v1/match
//
// Request Body:
//
//	{ "order_id": "a2f1c9e4-..." }
//
// Response:
//   - 200 OK: {"trades_executed": N, "order_status": "...", "filled_quantity": "..."}
//     (в том числе no-op с trades_executed=0 для терминальных ордеров)
//   - 400 Bad Request: невалидное тело запроса
//   - 404 Not Found: ордер не существует
//   - 409 Conflict: конфликт версий не разрешился за отведенные попытки,
//     вызов можно безопасно повторить
//   - 500 Internal Server Error: нарушение инварианта балансов
//   - 503 Service Unavailable: транзиентный сбой хранилища, повторить позже
func (h *MatchHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	var req TriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", err.Error())
		return
	}

	if strings.TrimSpace(req.OrderID) == "" {
		respondWithError(w, http.StatusBadRequest, "missing_order_id", "order_id is required", "")
		return
	}

	outcome, err := h.matchService.TriggerMatch(r.Context(), req.OrderID)
	if err != nil {
		h.handleTriggerError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, outcome)
}

// handleTriggerError переводит ошибки цикла матчинга в HTTP статусы
func (h *MatchHandler) handleTriggerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrOrderNotFound):
		respondWithError(w, http.StatusNotFound, "order_not_found", "Order does not exist", "")
	case errors.Is(err, service.ErrRetryExhausted):
		respondWithError(w, http.StatusConflict, "retry_exhausted", "Concurrent settlement conflict, retry the trigger", err.Error())
	case errors.Is(err, repository.ErrInsufficientHolding):
		respondWithError(w, http.StatusInternalServerError, "invariant_violation", "Seller balance below trade quantity", err.Error())
	default:
		// Транзиентные сбои хранилища: атомарность settlement'а гарантирует
		// отсутствие частичных записей, повтор безопасен
		respondWithError(w, http.StatusServiceUnavailable, "storage_failure", "Transient storage failure, retry later", err.Error())
	}
}

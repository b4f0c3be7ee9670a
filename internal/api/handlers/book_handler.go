package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"metalex/internal/models"
	"metalex/internal/repository"
	"metalex/internal/service"
)

// BookReader определяет интерфейс read-сервиса для handler'а
type BookReader interface {
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	GetBook(ctx context.Context, instrumentID string, depth int) (*service.BookSnapshot, error)
	GetRecentTrades(ctx context.Context, instrumentID string, limit int) ([]*models.Trade, error)
	GetTradesInRange(ctx context.Context, instrumentID string, from, to time.Time) ([]*models.Trade, error)
	GetOrderTrades(ctx context.Context, orderID string) ([]*models.Trade, error)
	GetHoldings(ctx context.Context, userID string) ([]*models.Holding, error)
	GetMarketStats(ctx context.Context) (*service.MarketStats, error)
}

// BookHandler - read-only поверхности Ledger'а
//
// Endpoints:
// - GET /api/v1/orders/{id}          - снапшот ордера
// - GET /api/v1/orders/{id}/trades   - сделки ордера
// - GET /api/v1/book/{instrument}    - обе стороны книги в priority порядке
// - GET /api/v1/trades               - последние сделки (?instrument=&limit= или ?from=&to=)
// - GET /api/v1/holdings/{user_id}   - балансы пользователя
// - GET /api/v1/stats                - сводка рынка
type BookHandler struct {
	bookService BookReader
}

// NewBookHandler создает новый BookHandler
func NewBookHandler(bookService BookReader) *BookHandler {
	return &BookHandler{bookService: bookService}
}

// GetOrder возвращает ордер по ID
// GET /api/v1/orders/{id}
func (h *BookHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	order, err := h.bookService.GetOrder(r.Context(), id)
	if err != nil {
		h.handleReadError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, order)
}

// GetOrderTrades возвращает сделки с участием ордера
// GET /api/v1/orders/{id}/trades
func (h *BookHandler) GetOrderTrades(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	trades, err := h.bookService.GetOrderTrades(r.Context(), id)
	if err != nil {
		h.handleReadError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, trades)
}

// GetBook возвращает снапшот книги
// GET /api/v1/book/{instrument}?depth=50
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	instrumentID := mux.Vars(r)["instrument"]
	depth, _ := strconv.Atoi(r.URL.Query().Get("depth"))

	book, err := h.bookService.GetBook(r.Context(), instrumentID, depth)
	if err != nil {
		h.handleReadError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, book)
}

// GetTrades возвращает последние сделки инструмента.
// С параметрами from/to (RFC 3339) выборка идет по периоду, без них -
// последние limit сделок.
// GET /api/v1/trades?instrument=XAU-1G&limit=100
// GET /api/v1/trades?instrument=XAU-1G&from=2026-08-01T00:00:00Z&to=2026-09-01T00:00:00Z
func (h *BookHandler) GetTrades(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	instrumentID := query.Get("instrument")

	if query.Get("from") != "" || query.Get("to") != "" {
		from, err := time.Parse(time.RFC3339, query.Get("from"))
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid 'from' timestamp, expected RFC 3339", err.Error())
			return
		}
		to, err := time.Parse(time.RFC3339, query.Get("to"))
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid 'to' timestamp, expected RFC 3339", err.Error())
			return
		}

		trades, err := h.bookService.GetTradesInRange(r.Context(), instrumentID, from, to)
		if err != nil {
			h.handleReadError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, trades)
		return
	}

	limit, _ := strconv.Atoi(query.Get("limit"))

	trades, err := h.bookService.GetRecentTrades(r.Context(), instrumentID, limit)
	if err != nil {
		h.handleReadError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, trades)
}

// GetStats возвращает сводку рынка: активные ордера и количество сделок
// GET /api/v1/stats
func (h *BookHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.bookService.GetMarketStats(r.Context())
	if err != nil {
		h.handleReadError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}

// GetHoldings возвращает балансы пользователя
// GET /api/v1/holdings/{user_id}
func (h *BookHandler) GetHoldings(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	holdings, err := h.bookService.GetHoldings(r.Context(), userID)
	if err != nil {
		h.handleReadError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, holdings)
}

// handleReadError переводит ошибки read-сервиса в HTTP статусы
func (h *BookHandler) handleReadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrOrderNotFound):
		respondWithError(w, http.StatusNotFound, "order_not_found", "Order does not exist", "")
	case errors.Is(err, service.ErrInstrumentRequired),
		errors.Is(err, service.ErrUserRequired),
		errors.Is(err, service.ErrOrderIDRequired),
		errors.Is(err, service.ErrInvalidTimeRange):
		respondWithError(w, http.StatusBadRequest, "invalid_request", err.Error(), "")
	default:
		respondWithError(w, http.StatusInternalServerError, "internal_error", "Failed to read ledger", err.Error())
	}
}

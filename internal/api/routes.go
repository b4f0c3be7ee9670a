package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"metalex/internal/api/handlers"
	"metalex/internal/api/middleware"
	"metalex/pkg/ratelimit"
)

// Dependencies содержит все зависимости для API handlers
type Dependencies struct {
	MatchService handlers.MatchTrigger
	BookService  handlers.BookReader

	// TradeFeedWS - handler WebSocket ленты сделок (может быть nil)
	TradeFeedWS http.HandlerFunc

	// ServiceTokenHash - bcrypt-хеш сервисного токена для мутирующих
	// endpoints; пустая строка отключает проверку (локальная разработка)
	ServiceTokenHash string

	// TriggerLimiter ограничивает частоту триггеров (может быть nil)
	TriggerLimiter *ratelimit.RateLimiter

	Logger *zap.Logger
}

// SetupRoutes настраивает все HTTP маршруты приложения
//
// Структура маршрутов:
//
// /api/v1/
//
//	├── POST /match                  - триггер матчинга (auth + rate limit)
//	├── GET  /orders/{id}            - снапшот ордера
//	├── GET  /orders/{id}/trades     - сделки ордера
//	├── GET  /book/{instrument}      - resting книга в priority порядке
//	├── GET  /trades                 - последние сделки (?instrument=&limit= или ?from=&to=)
//	├── GET  /holdings/{user_id}     - балансы пользователя
//	└── GET  /stats                  - сводка рынка
//
// /ws/trades - WebSocket подписка на исполненные сделки
// /metrics   - Prometheus метрики
// /health    - liveness проверка
//
// Middleware применяется в следующем порядке:
// 1. Recovery (для всех маршрутов)
// 2. Logging (для всех маршрутов)
// 3. CORS (для всех маршрутов)
// 4. ServiceAuth + RateLimit (только для POST /match)
func SetupRoutes(deps *Dependencies) *mux.Router {
	router := mux.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// Глобальные middleware
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logging(logger))
	router.Use(middleware.CORS)

	v1 := router.PathPrefix("/api/v1").Subrouter()

	// Мутирующий trigger endpoint: сервисная аутентификация + rate limit
	trigger := v1.PathPrefix("/match").Subrouter()
	trigger.Use(middleware.ServiceAuth(deps.ServiceTokenHash))
	if deps.TriggerLimiter != nil {
		trigger.Use(middleware.RateLimit(deps.TriggerLimiter))
	}

	if deps.MatchService != nil {
		matchHandler := handlers.NewMatchHandler(deps.MatchService)
		trigger.HandleFunc("", matchHandler.Trigger).Methods(http.MethodPost)
	}

	// Read-only поверхности Ledger'а
	if deps.BookService != nil {
		bookHandler := handlers.NewBookHandler(deps.BookService)
		v1.HandleFunc("/orders/{id}", bookHandler.GetOrder).Methods(http.MethodGet)
		v1.HandleFunc("/orders/{id}/trades", bookHandler.GetOrderTrades).Methods(http.MethodGet)
		v1.HandleFunc("/book/{instrument}", bookHandler.GetBook).Methods(http.MethodGet)
		v1.HandleFunc("/trades", bookHandler.GetTrades).Methods(http.MethodGet)
		v1.HandleFunc("/holdings/{user_id}", bookHandler.GetHoldings).Methods(http.MethodGet)
		v1.HandleFunc("/stats", bookHandler.GetStats).Methods(http.MethodGet)
	}

	// WebSocket лента сделок
	if deps.TradeFeedWS != nil {
		router.HandleFunc("/ws/trades", deps.TradeFeedWS)
	}

	// Операционные endpoints
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	return router
}

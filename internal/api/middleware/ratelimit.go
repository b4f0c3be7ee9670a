package middleware

import (
	"net/http"

	"github.com/gorilla/mux"

	"metalex/pkg/ratelimit"
)

// RateLimit - middleware ограничения частоты запросов
//
// Ставится на мутирующий trigger endpoint: защищает цикл матчинга
// от флуда триггеров (каждый вызов - чтение книги + транзакция).
// Отклоненные запросы получают 429 и могут быть безопасно повторены.
func RateLimit(limiter *ratelimit.RateLimiter) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

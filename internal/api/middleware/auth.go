package middleware

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"metalex/pkg/crypto"
)

// ServiceAuth - middleware аутентификации сервисного вызова
//
// Триггер матчинга вызывается внешним путем подачи ордеров, а не
// конечными пользователями, поэтому авторизация - один сервисный токен:
// Authorization: Bearer <token>. В конфиге хранится только bcrypt-хеш
// токена (SERVICE_TOKEN_HASH), сам токен на сервер не попадает.
//
// Пустой хеш означает локальную разработку - проверка отключена.
func ServiceAuth(tokenHash string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenHash == "" {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !crypto.CheckTokenMatch(token, tokenHash) {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

package middleware

import (
	"net"
	"net/http"
	"strconv"
	"time"

	apperror "gosementes/internal/errors"
	"gosementes/internal/pkg/cache"
	"gosementes/internal/pkg/logger"
)

// RateLimiter limita requisições por IP numa janela fixa guardada no Redis.
// Falha do cache não derruba a API: a requisição segue sem limite.
func RateLimiter(client cache.Client, limit int, window time.Duration, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			key := "rate-limit:" + ip

			count, err := client.Incr(r.Context(), key, window)
			if err != nil {
				log.Warn("Rate limiter indisponível; requisição liberada.", map[string]interface{}{"ip": ip, "error": err.Error()})
				next.ServeHTTP(w, r)
				return
			}

			remaining := limit - count
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if count > limit {
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				WriteError(w, &rateLimitError{})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// rateLimitError é o 429 devolvido quando a janela estoura.
type rateLimitError struct{}

func (e *rateLimitError) Error() string    { return "Limite de requisições excedido." }
func (e *rateLimitError) Category() string { return "RATE_LIMITED" }
func (e *rateLimitError) HTTPStatus() int  { return http.StatusTooManyRequests }
func (e *rateLimitError) Unwrap() error    { return nil }

var _ apperror.AppError = (*rateLimitError)(nil)

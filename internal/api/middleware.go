package api

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"coworkd/internal/booking"
	"coworkd/internal/metrics"
	"coworkd/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

type ctxKey int

const (
	actorKey ctxKey = iota
	tokenIDKey
	requestIDKey
)

// actorFromContext returns the authenticated actor. Only valid below the
// authenticate middleware.
func actorFromContext(ctx context.Context) booking.Actor {
	actor, _ := ctx.Value(actorKey).(booking.Actor)
	return actor
}

func tokenIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(tokenIDKey).(string)
	return id
}

// requestID tags each request with an id, honoring one supplied upstream.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// logRequests writes one structured line per request and feeds the HTTP
// metrics, labeled by route pattern rather than raw path.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		endpoint := chi.RouteContext(r.Context()).RoutePattern()
		if endpoint == "" {
			endpoint = r.URL.Path
		}
		metrics.IncHTTP(endpoint, strconv.Itoa(rec.status))

		requestID, _ := r.Context().Value(requestIDKey).(string)
		s.logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// recoverPanics converts handler panics into 500s instead of dropping the
// connection.
func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panic")
				writeMessage(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// limiterClient pairs a client's bucket with its last activity. lastSeen is
// unix nanos, atomic because request goroutines and the eviction loop touch
// it concurrently.
type limiterClient struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// rateLimit enforces a per-client token bucket keyed by remote IP. Limiters
// for idle clients are dropped after an hour; the eviction loop stops when
// the server is closed.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	if s.limiterRPS <= 0 {
		return next
	}

	var clients sync.Map

	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-s.quit:
				return
			case <-ticker.C:
				cutoff := time.Now().Add(-time.Hour).UnixNano()
				clients.Range(func(key, value interface{}) bool {
					if value.(*limiterClient).lastSeen.Load() < cutoff {
						clients.Delete(key)
					}
					return true
				})
			}
		}
	}()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		value, _ := clients.LoadOrStore(ip, &limiterClient{
			limiter: rate.NewLimiter(rate.Limit(s.limiterRPS), s.limiterBurst),
		})
		c := value.(*limiterClient)
		c.lastSeen.Store(time.Now().UnixNano())

		if !c.limiter.Allow() {
			writeMessage(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authenticate resolves the request's actor from a bearer token or the token
// cookie and rejects revoked tokens.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeMessage(w, http.StatusUnauthorized, "not authorized to access this route")
			return
		}

		claims, err := s.tokens.Parse(token)
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "not authorized to access this route")
			return
		}

		revoked, err := s.tokenStore.IsRevoked(r.Context(), claims.ID)
		if err != nil {
			s.logger.Error().Err(err).Msg("token revocation check error")
			writeMessage(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if revoked {
			writeMessage(w, http.StatusUnauthorized, "not authorized to access this route")
			return
		}

		ctx := context.WithValue(r.Context(), actorKey, booking.Actor{ID: claims.UserID, Role: claims.Role})
		ctx = context.WithValue(ctx, tokenIDKey, claims.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin gates a route to admin actors. Must sit below authenticate.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := actorFromContext(r.Context())
		if actor.Role != models.RoleAdmin {
			writeMessage(w, http.StatusUnauthorized, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := r.Cookie("token"); err == nil {
		return cookie.Value
	}
	return ""
}

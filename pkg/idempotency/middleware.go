package idempotency

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmehra2102/shop-cart-service/pkg/apperr"
	"github.com/dmehra2102/shop-cart-service/pkg/httpx"
)

const Header = "Idempotency-Key"

var ErrInFlight = errors.New("request with this idempotency key is in flight")

// ResponseStore is the subset of Store the middleware needs.
type ResponseStore interface {
	Begin(ctx context.Context, key string) ([]byte, error)
	Complete(ctx context.Context, key string, response []byte) error
	Release(ctx context.Context, key string) error
}

type storedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// Middleware replays the first successful response for a repeated
// Idempotency-Key. Requests without the header pass through untouched.
// Non-2xx responses release the key.
func Middleware(log *slog.Logger, store ResponseStore, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(Header)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			key := "idem:http:" + scope + ":" + raw
			ctx := r.Context()

			prev, err := store.Begin(ctx, key)
			switch {
			case errors.Is(err, ErrInFlight):
				httpx.WriteError(w, log, &apperr.Error{
					Kind:    apperr.KindUnavailable,
					Message: "a request with this idempotency key is still being processed",
				})
				return
			case err != nil:
				httpx.WriteError(w, log, apperr.Unavailable("idempotency store unavailable", err))
				return
			case prev != nil:
				var sr storedResponse
				if err := json.Unmarshal(prev, &sr); err == nil {
					w.Header().Set("Content-Type", "application/json")
					w.Header().Set("Idempotent-Replayed", "true")
					w.WriteHeader(sr.Status)
					_, _ = w.Write(sr.Body)
					return
				}
				log.Warn("idempotency record unreadable, reprocessing", "key", key)
			}

			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.status >= 200 && rec.status < 300 {
				body := bytes.TrimSpace(rec.body.Bytes())
				if len(body) == 0 {
					body = []byte("null")
				}
				payload, err := json.Marshal(storedResponse{Status: rec.status, Body: body})
				if err == nil {
					err = store.Complete(ctx, key, payload)
				}
				if err != nil {
					log.Error("idempotency complete failed", "key", key, "err", err)
				}
				return
			}
			if err := store.Release(ctx, key); err != nil {
				log.Error("idempotency release failed", "key", key, "err", err)
			}
		})
	}
}

type recorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *recorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

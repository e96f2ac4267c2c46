package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/cloo-solutions/plotsearch/internal/authclient"
)

const requestStateKey contextKey = "request_state"

// requestState is shared by the whole middleware chain so outer layers
// (access log, tracing) can see the caller resolved by inner ones.
type requestState struct {
	id     string
	userID string
}

// RequestID assigns a request id, honoring an incoming X-Request-ID, and
// echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}

		state := &requestState{id: id}
		ctx := context.WithValue(r.Context(), requestStateKey, state)
		ctx = authclient.WithRequestID(ctx, id)
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request id, or "" outside RequestID.
func GetRequestID(ctx context.Context) string {
	if s := stateFrom(ctx); s != nil {
		return s.id
	}
	return ""
}

func stateFrom(ctx context.Context) *requestState {
	s, _ := ctx.Value(requestStateKey).(*requestState)
	return s
}

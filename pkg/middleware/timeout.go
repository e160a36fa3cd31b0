package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// timeoutWriter wraps http.ResponseWriter to prevent writes after timeout
type timeoutWriter struct {
	http.ResponseWriter
	mu       sync.Mutex
	timedOut bool
	written  bool
}

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.timedOut || tw.written {
		return
	}

	tw.written = true
	tw.ResponseWriter.WriteHeader(code)
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.timedOut {
		return 0, http.ErrHandlerTimeout
	}

	if !tw.written {
		tw.written = true
		tw.ResponseWriter.WriteHeader(http.StatusOK)
	}

	return tw.ResponseWriter.Write(b)
}

func RequestTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			r = r.WithContext(ctx)

			tw := &timeoutWriter{ResponseWriter: w}

			done := make(chan struct{})
			panicCh := make(chan any, 1)
			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicCh <- p
					}
				}()
				next.ServeHTTP(tw, r)
				close(done)
			}()

			select {
			case p := <-panicCh:
				panic(p)
			case <-done:
				return
			case <-ctx.Done():
				tw.mu.Lock()
				tw.timedOut = true
				if !tw.written {
					tw.written = true
					writeJSONError(w, http.StatusGatewayTimeout, "TIMEOUT", "Request timeout")
				}
				tw.mu.Unlock()
			}
		})
	}
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/S1riyS/ghost-vfs/pkg/logging"
	"github.com/stretchr/testify/assert"
)

func TestRequestIDMiddleware(t *testing.T) {
	var got string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = logging.GetRequestIDFromCtx(r.Context())
	})
	h := RequestIDMiddleware(next)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "req-1", got)
	assert.Equal(t, "req-1", rec.Header().Get(RequestIDHeader))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Len(t, got, 36, "a uuid is generated when the header is missing")
}

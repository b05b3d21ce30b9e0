package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type observed struct {
	method, route string
	status        int
}

type recordingObserver struct{ calls []observed }

func (r *recordingObserver) ObserveRequest(method, route string, status int, _ time.Duration) {
	r.calls = append(r.calls, observed{method: method, route: route, status: status})
}

func TestLoggingReportsRoutePattern(t *testing.T) {
	obs := &recordingObserver{}
	router := chi.NewRouter()
	router.Use(Logging(nil, obs))
	router.Get("/vehicles/{vehicleId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/vehicles/abc", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	require.Len(t, obs.calls, 2)
	assert.Equal(t, observed{method: http.MethodGet, route: "/vehicles/{vehicleId}", status: http.StatusTeapot}, obs.calls[0])
	assert.Equal(t, http.StatusNotFound, obs.calls[1].status)
}

func TestStatusWriterDefaultsToOK(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec}
	n, err := sw.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, http.StatusOK, sw.code())
	assert.Equal(t, int64(5), sw.written)

	sw.WriteHeader(http.StatusInternalServerError)
	assert.Equal(t, http.StatusOK, sw.code(), "first status wins")
}

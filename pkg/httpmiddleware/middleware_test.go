package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWrap_Order(t *testing.T) {
	var calls []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls = append(calls, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Wrap(okHandler(), mark("outer"), mark("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"outer", "inner"}, calls)
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "req-123", seen)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "bad\x01id")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.NotEqual(t, "bad\x01id", seen)
	assert.Len(t, seen, 36)
}

func TestInjectLogger_LogRequests(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	lg := zap.New(core)

	r := chi.NewRouter()
	r.Use(LogRequests(ChiRouteFinder))
	r.Get("/api/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		zctx.From(r.Context()).Info("Handling")
		w.WriteHeader(http.StatusNotFound)
	})
	h := Wrap(r, RequestID(), InjectLogger(lg))

	req := httptest.NewRequest(http.MethodGet, "/api/orders/abc", nil)
	req.Header.Set("X-Request-ID", "req-9")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "Handling", entries[0].Message)
	assert.Equal(t, "req-9", entries[0].ContextMap()["request_id"])

	reqLog := entries[1]
	assert.Equal(t, zapcore.WarnLevel, reqLog.Level)
	assert.Equal(t, "/api/orders/{id}", reqLog.ContextMap()["route"])
	assert.Equal(t, int64(http.StatusNotFound), reqLog.ContextMap()["status"])
}

func TestRecovery(t *testing.T) {
	h := Recovery()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"code":500,"message":"internal server error"}`, w.Body.String())
}

func TestCORS(t *testing.T) {
	h := CORS(CORSConfig{
		AllowOrigins:     []string{"https://Shop.Orephia.test"},
		AllowCredentials: true,
		MaxAge:           600,
	})(okHandler())

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/orders", nil)
		req.Header.Set("Origin", "https://shop.orephia.test")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "https://Shop.Orephia.test", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
	})
	t.Run("disallowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		req.Header.Set("Origin", "https://evil.test")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestInstrument_Labeler(t *testing.T) {
	r := chi.NewRouter()
	r.Use(
		Instrument("test", ChiRouteFinder, tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider()),
		Labeler(ChiRouteFinder),
	)
	r.Get("/api/products/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products/tee", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
}

package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// TestCorrelationIDMiddleware_GeneratesID verifies a correlation ID is
// generated, stored in context, and echoed in the response header.
func TestCorrelationIDMiddleware_GeneratesID(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	var ctxCorrID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if v, ok := r.Context().Value("correlation_id").(string); ok {
			ctxCorrID = v
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/zones", nil)
	w := httptest.NewRecorder()
	CorrelationIDMiddleware(logger)(next).ServeHTTP(w, req)

	headerID := w.Header().Get("X-Correlation-ID")
	if headerID == "" {
		t.Fatal("X-Correlation-ID header not set")
	}
	if ctxCorrID != headerID {
		t.Errorf("context correlation id = %q, header = %q, want equal", ctxCorrID, headerID)
	}
}

// TestCorrelationIDMiddleware_PropagatesExisting verifies a caller-provided ID
// is kept rather than replaced.
func TestCorrelationIDMiddleware_PropagatesExisting(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/zones", nil)
	req.Header.Set("X-Correlation-ID", "caller-id-42")
	w := httptest.NewRecorder()
	CorrelationIDMiddleware(logger)(next).ServeHTTP(w, req)

	if got := w.Header().Get("X-Correlation-ID"); got != "caller-id-42" {
		t.Errorf("X-Correlation-ID = %q, want caller-id-42", got)
	}
}

// TestRateLimitMiddleware_Denies verifies requests beyond the burst return 429.
func TestRateLimitMiddleware_Denies(t *testing.T) {
	limiter := rate.NewLimiter(rate.Limit(1), 1)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RateLimitMiddleware(limiter)(next)

	// First request consumes the burst token.
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/forecast/WAZ558", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", w.Code)
	}

	// Second immediate request must be denied.
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/forecast/WAZ558", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", w.Code)
	}
}

// TestRateLimitMiddleware_NilLimiter verifies a nil limiter disables limiting.
func TestRateLimitMiddleware_NilLimiter(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RateLimitMiddleware(nil)(next)

	for i := 0; i < 10; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/forecast/WAZ558", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, w.Code)
		}
	}
}

// TestTimeoutMiddleware_SetsDeadline verifies downstream handlers observe the
// context deadline.
func TestTimeoutMiddleware_SetsDeadline(t *testing.T) {
	var hadDeadline bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hadDeadline = r.Context().Deadline()
		w.WriteHeader(http.StatusOK)
	})

	w := httptest.NewRecorder()
	TimeoutMiddleware(time.Second)(next).ServeHTTP(w, httptest.NewRequest("GET", "/forecast/WAZ558", nil))

	if !hadDeadline {
		t.Error("downstream context has no deadline")
	}
}

// TestMetricsMiddleware_RecordsStatus verifies the middleware passes requests
// through and preserves the downstream status code.
func TestMetricsMiddleware_RecordsStatus(t *testing.T) {
	router := mux.NewRouter()
	router.Use(MetricsMiddleware)
	router.HandleFunc("/zones", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/zones", nil))

	if w.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d passed through", w.Code, http.StatusTeapot)
	}
}

// TestGetRoute verifies path-to-route-template normalization for metric labels.
func TestGetRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/zones", "/zones"},
		{"/health", "/health"},
		{"/metrics", "/metrics"},
		{"/forecast/WAZ558", "/forecast/{zoneId}"},
		{"/other", "/other"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", tt.path, nil)
		if got := getRoute(req); got != tt.want {
			t.Errorf("getRoute(%s) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

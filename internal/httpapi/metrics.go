package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatd",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status code",
		},
		[]string{"route", "method", "code"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chatd",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			// Chat requests include generation, so the tail is long.
			Buckets: []float64{0.01, 0.05, 0.25, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"route", "method", "code"},
	)

	activeChats = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "chatd",
			Subsystem: "http",
			Name:      "active_chats",
			Help:      "Chat exchanges currently being served, by transport",
		},
		[]string{"transport"},
	)

	errorResponses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatd",
			Subsystem: "http",
			Name:      "error_responses_total",
			Help:      "Error payloads written, by status code",
		},
		[]string{"code"},
	)

	fragmentsStreamed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatd",
			Subsystem: "http",
			Name:      "fragments_streamed_total",
			Help:      "Output fragments sent to clients, by transport",
		},
		[]string{"transport"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, activeChats, errorResponses, fragmentsStreamed)
}

// Transports label chat metrics.
const (
	transportJSON   = "json"
	transportNDJSON = "ndjson"
	transportWS     = "ws"
)

// MetricsMiddleware records request counts and latency per route. The wrapped
// writer keeps Flusher and Hijacker so streaming and websocket routes work.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		labels := []string{routeLabel(r), r.Method, strconv.Itoa(code)}
		httpRequestsTotal.WithLabelValues(labels...).Inc()
		httpRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
	})
}

// trackChat counts a chat exchange as active until the returned func runs.
func trackChat(transport string) func() {
	g := activeChats.WithLabelValues(transport)
	g.Inc()
	return g.Dec
}

func countFragment(transport string) { fragmentsStreamed.WithLabelValues(transport).Inc() }

func countError(code int) { errorResponses.WithLabelValues(strconv.Itoa(code)).Inc() }

// routeLabel prefers the chi route pattern so ids in paths do not create
// new series.
func routeLabel(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

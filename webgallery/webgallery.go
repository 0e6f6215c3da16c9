package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	photoshare "github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/gallery"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// GalleryView is the public JSON form of a gallery.
type GalleryView struct {
	ID                  string                      `json:"id"`
	Title               string                      `json:"title"`
	Photos              []photoshare.ShareablePhoto `json:"photos"`
	PhotoCount          int                         `json:"photoCount"`
	CreatedAt           time.Time                   `json:"createdAt"`
	ExpiresAt           time.Time                   `json:"expiresAt"`
	IncludeBusinessInfo bool                        `json:"includeBusinessInfo"`
	Watermark           bool                        `json:"watermark"`
}

func viewOf(rec photoshare.GalleryRecord) GalleryView {
	return GalleryView{
		ID:                  rec.ID,
		Title:               rec.Title,
		Photos:              rec.Photos,
		PhotoCount:          len(rec.Photos),
		CreatedAt:           rec.CreatedAt,
		ExpiresAt:           rec.ExpiresAt,
		IncludeBusinessInfo: rec.IncludeBusinessInfo,
		Watermark:           rec.Watermark,
	}
}

type serverMetrics struct {
	requestDuration  *prometheus.HistogramVec
	requestsTotal    *prometheus.CounterVec
	requestsInFlight prometheus.Gauge
	galleriesServed  *prometheus.CounterVec
}

func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)
	return &serverMetrics{
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webgallery_http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "handler"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webgallery_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "handler", "code"},
		),
		requestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "webgallery_http_requests_in_flight",
				Help: "Current number of HTTP requests being served",
			},
		),
		galleriesServed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webgallery_galleries_served_total",
				Help: "Gallery lookups by result",
			},
			[]string{"result"},
		),
	}
}

func (m *serverMetrics) instrument(name string, h http.HandlerFunc) http.Handler {
	return promhttp.InstrumentHandlerDuration(
		m.requestDuration.MustCurryWith(prometheus.Labels{"handler": name}),
		promhttp.InstrumentHandlerCounter(
			m.requestsTotal.MustCurryWith(prometheus.Labels{"handler": name}),
			promhttp.InstrumentHandlerInFlight(m.requestsInFlight, h),
		),
	)
}

// GalleryServer serves stored galleries over HTTP.
type GalleryServer struct {
	store   photoshare.GalleryStore
	reader  *gallery.Reader
	logger  *zap.Logger
	metrics *serverMetrics
	tracer  oteltrace.Tracer
}

func NewGalleryServer(store photoshare.GalleryStore, reader *gallery.Reader, logger *zap.Logger, reg prometheus.Registerer) *GalleryServer {
	return &GalleryServer{
		store:   store,
		reader:  reader,
		logger:  logger,
		metrics: newServerMetrics(reg),
		tracer:  otel.Tracer("webgallery"),
	}
}

// responseWriterWithStatus wraps http.ResponseWriter to capture status code
type responseWriterWithStatus struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func (rw *responseWriterWithStatus) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriterWithStatus) Write(b []byte) (int, error) {
	if rw.statusCode == 0 {
		rw.statusCode = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

func loggingMiddleware(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriterWithStatus{ResponseWriter: w, statusCode: http.StatusOK}

		clientIP := r.RemoteAddr
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			clientIP = strings.TrimSpace(strings.Split(xff, ",")[0])
		} else if xri := r.Header.Get("X-Real-IP"); xri != "" {
			clientIP = xri
		}

		next.ServeHTTP(rw, r)

		logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rw.statusCode),
			zap.Int64("bytes", rw.bytesWritten),
			zap.Duration("duration", time.Since(start)),
			zap.String("client", clientIP),
			zap.String("user_agent", r.UserAgent()))
	})
}

func (gs *GalleryServer) handleGallery(w http.ResponseWriter, r *http.Request) {
	ctx, span := gs.tracer.Start(r.Context(), "open_gallery")
	defer span.End()

	id := r.PathValue("id")
	span.SetAttributes(attribute.String("gallery.id", id))

	rec, err := gs.reader.Open(ctx, id)
	switch {
	case errors.Is(err, photoshare.ErrGalleryNotFound):
		gs.metrics.galleriesServed.WithLabelValues("not_found").Inc()
		http.Error(w, "Gallery not found", http.StatusNotFound)
		return
	case errors.Is(err, photoshare.ErrGalleryExpired):
		gs.metrics.galleriesServed.WithLabelValues("expired").Inc()
		http.Error(w, "Gallery link has expired", http.StatusGone)
		return
	case err != nil:
		span.RecordError(err)
		gs.logger.Error("failed to open gallery", zap.String("id", id), zap.Error(err))
		gs.metrics.galleriesServed.WithLabelValues("error").Inc()
		http.Error(w, "Failed to load gallery", http.StatusInternalServerError)
		return
	}

	span.SetAttributes(attribute.Int("photos.count", len(rec.Photos)))
	gs.metrics.galleriesServed.WithLabelValues("ok").Inc()
	gs.writeJSON(w, span, viewOf(rec))
}

func (gs *GalleryServer) handleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := gs.tracer.Start(r.Context(), "list_galleries")
	defer span.End()

	ids, err := gs.store.List(ctx)
	if err != nil {
		span.RecordError(err)
		http.Error(w, "Failed to list galleries", http.StatusInternalServerError)
		return
	}
	span.SetAttributes(attribute.Int("galleries.count", len(ids)))
	gs.writeJSON(w, span, ids)
}

func (gs *GalleryServer) writeJSON(w http.ResponseWriter, span oteltrace.Span, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		span.RecordError(err)
		gs.logger.Warn("failed to encode response", zap.Error(err))
	}
}

// Handler wires routes and middleware. tracez may be nil.
func (gs *GalleryServer) Handler(gatherer prometheus.Gatherer, tracez http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /gallery/{id}", gs.metrics.instrument("gallery", gs.handleGallery))
	mux.Handle("GET /galleries", gs.metrics.instrument("list", gs.handleList))
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	if tracez != nil {
		mux.Handle("GET /tracez", tracez)
	}
	return loggingMiddleware(gs.logger, otelhttp.NewHandler(mux, "request"))
}

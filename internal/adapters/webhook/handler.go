// Package webhook receives push notifications over HTTP and hands them to the
// dispatcher. The caller always gets an empty 200, whatever happens next.
package webhook

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/MyCarrier-DevOps/git-observer/internal/domain"
)

// Request headers read by the handler.
const (
	HeaderSignature = "X-Hub-Signature"
	HeaderEvent     = "X-GitHub-Event"
	HeaderDelivery  = "X-GitHub-Delivery"
)

// DefaultMaxBodyBytes caps a single delivery body.
const DefaultMaxBodyBytes int64 = 1 << 20

// Logger defines the logging interface for the webhook adapter.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields map[string]interface{})
}

// EventSink accepts inbound events for background processing.
type EventSink interface {
	Dispatch(event domain.InboundEvent) error
}

// Handler provides the HTTP entry point of the observer.
type Handler struct {
	sink         EventSink
	logger       Logger
	maxBodyBytes int64
}

// NewHandler creates a Handler. maxBodyBytes <= 0 uses DefaultMaxBodyBytes.
func NewHandler(sink EventSink, log Logger, maxBodyBytes int64) *Handler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &Handler{sink: sink, logger: log, maxBodyBytes: maxBodyBytes}
}

// Routes returns the router. Every method and path is accepted, matching how
// webhook senders are usually pointed at the bare host.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.HandleFunc("/*", h.handleDelivery)
	return r
}

// handleDelivery reads the whole body, acknowledges, then dispatches.
func (h *Handler) handleDelivery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.logger.Warn(ctx, "dropping oversized delivery", map[string]interface{}{
				"limit_bytes": tooLarge.Limit,
			})
		} else {
			h.logger.Warn(ctx, "failed to read delivery body", map[string]interface{}{
				"error": err.Error(),
			})
		}
		w.WriteHeader(http.StatusOK)
		return
	}

	deliveryID := r.Header.Get(HeaderDelivery)
	if deliveryID == "" {
		deliveryID = uuid.New().String()
	}

	event := domain.InboundEvent{
		Body:       body,
		Signature:  r.Header.Get(HeaderSignature),
		EventType:  r.Header.Get(HeaderEvent),
		DeliveryID: deliveryID,
	}

	w.WriteHeader(http.StatusOK)

	if err := h.sink.Dispatch(event); err != nil {
		h.logger.Warn(ctx, "delivery not dispatched", map[string]interface{}{
			"delivery_id": deliveryID,
			"request_id":  middleware.GetReqID(ctx),
			"error":       err.Error(),
		})
		return
	}
	h.logger.Debug(ctx, "delivery accepted", map[string]interface{}{
		"delivery_id": deliveryID,
		"request_id":  middleware.GetReqID(ctx),
		"event":       event.EventType,
		"body_bytes":  len(body),
	})
}

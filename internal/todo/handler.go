// Package todo implements the /api/todo/ handlers. Each handler performs one
// store operation in the "todos" namespace and maps the outcome to a response.
package todo

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/Aidin1998/todokv/common/apiutil"
	"github.com/Aidin1998/todokv/internal/events"
	"github.com/Aidin1998/todokv/internal/kvstore"
	"github.com/Aidin1998/todokv/pkg/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Namespace is the logical store name the handlers acquire.
const Namespace = "todos"

// maxPendingEvents bounds the publishes running behind already answered
// requests. Events beyond it are dropped and counted.
const maxPendingEvents = 256

// StoreProvider resolves a namespace to its store.
type StoreProvider interface {
	Namespace(ctx context.Context, name string) (kvstore.Store, error)
}

// Handler serves the todo routes.
type Handler struct {
	stores    StoreProvider
	publisher events.Publisher
	logger    *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time

	pending sync.WaitGroup
	slots   chan struct{}
}

// NewHandler creates a handler. publisher and m may be nil.
func NewHandler(stores StoreProvider, publisher events.Publisher, logger *zap.Logger, m *metrics.Metrics) *Handler {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Handler{
		stores:    stores,
		publisher: publisher,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
		slots:     make(chan struct{}, maxPendingEvents),
	}
}

// Wait blocks until every event handed to the publisher has been published
// or has failed. Call it before closing the publisher.
func (h *Handler) Wait() {
	h.pending.Wait()
}

type listResponse struct {
	Keys []string `json:"keys"`
}

// List handles GET /api/todo/
func (h *Handler) List(c *gin.Context) {
	defer h.countOperation(c, "list")
	ctx := c.Request.Context()
	h.logger.Debug("Getting todos", zap.String("request_id", apiutil.RequestID(c)))

	store, err := h.stores.Namespace(ctx, Namespace)
	if h.failed(c, failStoreUnavailable, err) {
		return
	}

	keys, err := store.ListKeys(ctx)
	if h.failed(c, failList, err) {
		return
	}
	if keys == nil {
		keys = []string{}
	}

	h.logger.Info("Got todos",
		zap.String("request_id", apiutil.RequestID(c)),
		zap.Int("count", len(keys)))
	c.JSON(http.StatusOK, listResponse{Keys: keys})
}

// Create handles POST /api/todo/
func (h *Handler) Create(c *gin.Context) {
	defer h.countOperation(c, "create")
	ctx := c.Request.Context()

	store, text, ok := h.acquire(c)
	if !ok {
		return
	}

	err := store.Put(ctx, text, "")
	if h.failed(c, failCreate, err, zap.String("text", text)) {
		return
	}

	h.logger.Info("Created todo",
		zap.String("request_id", apiutil.RequestID(c)),
		zap.String("text", text))
	c.String(http.StatusOK, "ok")
	h.publish(c, events.TodoCreated, text)
}

// Delete handles DELETE /api/todo/
func (h *Handler) Delete(c *gin.Context) {
	defer h.countOperation(c, "delete")
	ctx := c.Request.Context()

	store, text, ok := h.acquire(c)
	if !ok {
		return
	}

	err := store.Delete(ctx, text)
	if h.failed(c, failDelete, err, zap.String("text", text)) {
		return
	}

	h.logger.Info("Deleted todo",
		zap.String("request_id", apiutil.RequestID(c)),
		zap.String("text", text))
	c.String(http.StatusOK, "ok")
	h.publish(c, events.TodoDeleted, text)
}

// acquire resolves the store and the "text" field shared by Create and Delete.
func (h *Handler) acquire(c *gin.Context) (kvstore.Store, string, bool) {
	store, err := h.stores.Namespace(c.Request.Context(), Namespace)
	if h.failed(c, failStoreUnavailable, err) {
		return nil, "", false
	}

	body, err := readBody(c)
	if h.failed(c, failBody, err) {
		return nil, "", false
	}

	text, err := textField(body)
	if errors.Is(err, errTextMissing) {
		h.failed(c, failTextMissing, err)
		return nil, "", false
	}
	if h.failed(c, failTextNotString, err) {
		return nil, "", false
	}
	return store, text, true
}

// publish announces a committed change in the background so the response
// is not held back by the broker. Failures are only logged and counted.
func (h *Handler) publish(c *gin.Context, typ events.Type, text string) {
	if _, nop := h.publisher.(events.NopPublisher); nop {
		return
	}
	event := events.Event{
		Type:       typ,
		Namespace:  Namespace,
		Text:       text,
		OccurredAt: h.now().UTC(),
		RequestID:  apiutil.RequestID(c),
	}
	// the request context is cancelled once the handler returns
	ctx := context.WithoutCancel(c.Request.Context())

	select {
	case h.slots <- struct{}{}:
	default:
		h.logger.Warn("Dropping todo event, too many pending",
			zap.String("request_id", event.RequestID),
			zap.String("type", string(typ)))
		h.countEvent(typ, "dropped")
		return
	}

	h.pending.Add(1)
	go func() {
		defer h.pending.Done()
		defer func() { <-h.slots }()

		result := "ok"
		if err := h.publisher.Publish(ctx, event); err != nil {
			result = "error"
			h.logger.Warn("Failed to publish todo event",
				zap.String("request_id", event.RequestID),
				zap.String("type", string(typ)),
				zap.Error(err))
		}
		h.countEvent(typ, result)
	}()
}

func (h *Handler) countEvent(typ events.Type, result string) {
	if h.metrics != nil {
		h.metrics.EventsPublished.WithLabelValues(string(typ), result).Inc()
	}
}

func (h *Handler) countOperation(c *gin.Context, op string) {
	if h.metrics == nil {
		return
	}
	result := "ok"
	if c.Writer.Status() != http.StatusOK {
		result = "error"
	}
	h.metrics.OperationsTotal.WithLabelValues(op, result).Inc()
}

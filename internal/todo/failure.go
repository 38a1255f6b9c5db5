package todo

import (
	"net/http"

	"github.com/Aidin1998/todokv/common/apiutil"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// failure is one entry of the handler error taxonomy. Every kind is reported
// to the client as a 500 with message as the body.
type failure struct {
	kind    string
	message string
}

var (
	failStoreUnavailable = failure{kind: "store_unavailable", message: "Error getting todos"}
	failList             = failure{kind: "store_operation_failed", message: "Error getting todos"}
	failCreate           = failure{kind: "store_operation_failed", message: "Error creating todo"}
	failDelete           = failure{kind: "store_operation_failed", message: "Error deleting todo"}
	failBody             = failure{kind: "body_unparsable", message: "Error getting body"}
	failTextMissing      = failure{kind: "field_missing", message: "Error getting text"}
	failTextNotString    = failure{kind: "field_wrong_type", message: "Error getting text: Nil"}
)

// failed reports whether err is non-nil. If it is, the request is logged,
// counted and answered with f's 500 response, and the caller must return.
func (h *Handler) failed(c *gin.Context, f failure, err error, fields ...zap.Field) bool {
	if err == nil {
		return false
	}

	fields = append(fields,
		zap.String("request_id", apiutil.RequestID(c)),
		zap.String("kind", f.kind),
		zap.Error(err),
	)
	h.logger.Error(f.message, fields...)
	if h.metrics != nil {
		h.metrics.FailuresTotal.WithLabelValues(f.kind).Inc()
	}
	apiutil.WriteTextError(c, http.StatusInternalServerError, f.message)
	return true
}

package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	appsettlement "github.com/sellerledger/backend/internal/application/settlement"
)

// SettlementProcessor is the slice of the processing service the HTTP
// layer needs.
type SettlementProcessor interface {
	Preview(ctx context.Context, sess appsettlement.Session, settlementEntryID string) (*appsettlement.Preview, error)
	Process(ctx context.Context, sess appsettlement.Session, settlementEntryID string) (*appsettlement.Preview, error)
}

// SettlementHandler handles settlement processing API endpoints
type SettlementHandler struct {
	BaseHandler
	processor SettlementProcessor
}

// NewSettlementHandler creates a new SettlementHandler
func NewSettlementHandler(processor SettlementProcessor) *SettlementHandler {
	return &SettlementHandler{
		processor: processor,
	}
}

// RegisterRoutes registers settlement routes on the given group
func (h *SettlementHandler) RegisterRoutes(rg *gin.RouterGroup) {
	settlements := rg.Group("/settlements")
	{
		settlements.POST("/:id/preview", h.Preview)
		settlements.POST("/:id/process", h.Process)
	}
}

// sessionFromRequest extracts the accounting session token from the
// Authorization header. The token belongs to the caller's accounting
// connection, not to this service; it is threaded through unchanged.
func sessionFromRequest(c *gin.Context) (appsettlement.Session, bool) {
	auth := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || token == "" {
		return appsettlement.Session{}, false
	}
	return appsettlement.Session{Token: token}, true
}

// Preview computes the full diagnostic preview for a settlement without
// posting anything.
//
// POST /settlements/:id/preview
func (h *SettlementHandler) Preview(c *gin.Context) {
	sess, ok := sessionFromRequest(c)
	if !ok {
		h.Unauthorized(c, "missing accounting session token")
		return
	}

	preview, err := h.processor.Preview(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, preview)
}

// Process computes the preview and, when postable, posts both journal
// entries and commits the processing record. A blocked result is a 200
// with the blocked preview, not an error; the caller inspects the state.
//
// POST /settlements/:id/process
func (h *SettlementHandler) Process(c *gin.Context) {
	sess, ok := sessionFromRequest(c)
	if !ok {
		h.Unauthorized(c, "missing accounting session token")
		return
	}

	preview, err := h.processor.Process(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, preview)
}

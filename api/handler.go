package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"club_sales/internal/clients"
	"club_sales/internal/draft"
	"club_sales/internal/session"
)

// draftHandler holds the draft service and implements HTTP handlers for the
// sale-composition workflow.
type draftHandler struct {
	draftService *draft.Service
	logger       *zap.Logger
}

// NewDraftHandler creates a new draft handler.
func NewDraftHandler(draftService *draft.Service, logger *zap.Logger) *draftHandler {
	return &draftHandler{
		draftService: draftService,
		logger:       logger,
	}
}

// draftResponse pairs the draft with its derived total, which the UI shows as
// the running total.
func draftResponse(d *draft.Draft) gin.H {
	return gin.H{"draft": d, "total": d.Total()}
}

// respondError maps domain errors to HTTP status codes: missing things are
// 404, bad input 400, rule conflicts 409, upstream failures 502.
func (h *draftHandler) respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, draft.ErrNotFound),
		errors.Is(err, draft.ErrGroupNotFound),
		errors.Is(err, draft.ErrItemNotFound),
		errors.Is(err, draft.ErrProductNotFound),
		errors.Is(err, draft.ErrNoPendingSelection),
		errors.Is(err, draft.ErrNoClient),
		errors.Is(err, clients.ErrNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, draft.ErrInvalidPortions),
		errors.Is(err, draft.ErrInvalidPrice),
		errors.Is(err, draft.ErrInvalidSellType),
		errors.Is(err, draft.ErrEmptyGroupName),
		errors.Is(err, draft.ErrNoItems):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, draft.ErrLastGroup),
		errors.Is(err, draft.ErrWrongStep),
		errors.Is(err, draft.ErrNotAwaitingType),
		errors.Is(err, draft.ErrNotAwaitingPortions):
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, draft.ErrUpstream):
		ctx.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		h.logger.Error("unhandled error", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *draftHandler) sessionOrAbort(ctx *gin.Context) (session.Session, bool) {
	sess, err := session.FromContext(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
		return session.Session{}, false
	}
	return sess, true
}

// handleOpenDraft handles the POST /drafts endpoint.
func (h *draftHandler) handleOpenDraft(ctx *gin.Context) {
	sess, ok := h.sessionOrAbort(ctx)
	if !ok {
		return
	}

	d, err := h.draftService.Open(ctx.Request.Context(), sess)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, draftResponse(d))
}

func (h *draftHandler) handleGetDraft(ctx *gin.Context) {
	sess, ok := h.sessionOrAbort(ctx)
	if !ok {
		return
	}

	d, err := h.draftService.Get(sess, ctx.Param("id"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, draftResponse(d))
}

func (h *draftHandler) handleCancelDraft(ctx *gin.Context) {
	sess, ok := h.sessionOrAbort(ctx)
	if !ok {
		return
	}

	if err := h.draftService.Cancel(sess, ctx.Param("id")); err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (h *draftHandler) handleSearchProducts(ctx *gin.Context) {
	sess, ok := h.sessionOrAbort(ctx)
	if !ok {
		return
	}

	results, err := h.draftService.SearchProducts(sess, ctx.Param("id"), ctx.Query("query"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *draftHandler) handleRefreshCatalog(ctx *gin.Context) {
	sess, ok := h.sessionOrAbort(ctx)
	if !ok {
		return
	}

	d, err := h.draftService.RefreshCatalog(ctx.Request.Context(), sess, ctx.Param("id"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, draftResponse(d))
}

func (h *draftHandler) handleSelectProduct(ctx *gin.Context) {
	sess, ok := h.sessionOrAbort(ctx)
	if !ok {
		return
	}

	var req struct {
		ProductID string `json:"product_id" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("failed to bind JSON request", zap.Error(err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	d, err := h.draftService.SelectProduct(sess, ctx.Param("id"), req.ProductID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, draftResponse(d))
}

func (h *draftHandler) handleChooseSellType(ctx *gin.Context) {
	sess, ok := h.sessionOrAbort(ctx)
	if !ok {
		return
	}

	var req struct {
		SellType string `json:"sell_type" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	d, err := h.draftService.ChooseSellType(sess, ctx.Param("id"), draft.SellType(req.SellType))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, draftResponse(d))
}

func (h *draftHandler) handleConfirmPortions(ctx *gin.Context) {
	sess, ok := h.sessionOrAbort(ctx)
	if !ok {
		return
	}

	var req struct {
		Portions     int             `json:"portions"`
		PortionPrice decimal.Decimal `json:"portion_price"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	d, err := h.draftService.ConfirmPortions(sess, ctx.Param("id"), req.Portions, req.PortionPrice)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, draftResponse(d))
}

func (h *draftHandler) handleCancelSelection(ctx *gin.Context) {
	sess, ok := h.sessionOrAbort(ctx)
	if !ok {
		return
	}

	d, err := h.draftService.CancelSelection(sess, ctx.Param("id"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, draftResponse(d))
}

func (h *draftHandler) handleCreateGroup(ctx *gin.Context) {
	sess, ok := h.sessionOrAbort(ctx)
	if !ok {
		return
	}

	d, err := h.draftService.CreateGroup(sess, ctx.Param("id"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, draftResponse(d))
}

func (h *draftHandler) handleRenameGroup(ctx *gin.Context) {
	sess, ok := h.sessionOrAbort(ctx)
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	d, err := h.draftService.RenameGroup(sess, ctx.Param("id"), ctx.Param("groupID"), req.Name)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, draftResponse(d))
}

func (h *draftHandler) handleRemoveGroup(ctx *gin.Context) {
	sess, ok := h.sessionOrAbort(ctx)
	if !ok {
		return
	}

	d, err := h.draftService.RemoveGroup(sess, ctx.Param("id"), ctx.Param("groupID"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, draftResponse(d))
}

func (h *draftHandler) handleActivateGroup(ctx *gin.Context) {
	sess, ok := h.sessionOrAbort(ctx)
	if !ok {
		return
	}

	d, err := h.draftService.ActivateGroup(sess, ctx.Param("id"), ctx.Param("groupID"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, draftResponse(d))
}

func (h *draftHandler) handleUpdateItem(ctx *gin.Context) {
	sess, ok := h.sessionOrAbort(ctx)
	if !ok {
		return
	}

	var req struct {
		Quantity  *int             `json:"quantity"`
		UnitPrice *decimal.Decimal `json:"unit_price"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	if req.Quantity == nil && req.UnitPrice == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "quantity or unit_price is required"})
		return
	}

	d, err := h.draftService.UpdateItem(sess, ctx.Param("id"), ctx.Param("groupID"), ctx.Param("itemID"), req.Quantity, req.UnitPrice)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, draftResponse(d))
}

func (h *draftHandler) handleAdvance(ctx *gin.Context) {
	sess, ok := h.sessionOrAbort(ctx)
	if !ok {
		return
	}

	d, err := h.draftService.Advance(sess, ctx.Param("id"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, draftResponse(d))
}

func (h *draftHandler) handleBack(ctx *gin.Context) {
	sess, ok := h.sessionOrAbort(ctx)
	if !ok {
		return
	}

	d, err := h.draftService.Back(sess, ctx.Param("id"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, draftResponse(d))
}

func (h *draftHandler) handleAttachClient(ctx *gin.Context) {
	sess, ok := h.sessionOrAbort(ctx)
	if !ok {
		return
	}

	var req struct {
		ClientID string `json:"client_id" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	d, err := h.draftService.AttachClient(ctx.Request.Context(), sess, ctx.Param("id"), req.ClientID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, draftResponse(d))
}

func (h *draftHandler) handleDetachClient(ctx *gin.Context) {
	sess, ok := h.sessionOrAbort(ctx)
	if !ok {
		return
	}

	d, err := h.draftService.DetachClient(sess, ctx.Param("id"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, draftResponse(d))
}

// handleSubmit posts the composed sale upstream. On failure the draft keeps
// its state so the user may retry.
func (h *draftHandler) handleSubmit(ctx *gin.Context) {
	sess, ok := h.sessionOrAbort(ctx)
	if !ok {
		return
	}

	created, err := h.draftService.Submit(ctx.Request.Context(), sess, ctx.Param("id"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, created)
}

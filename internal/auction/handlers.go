package auction

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/gavel/internal/ledger"
	"github.com/mbd888/gavel/internal/validation"
)

// Handler provides HTTP endpoints for auction operations.
type Handler struct {
	service *Service
}

// NewHandler creates a new auction handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up public auction routes. Settlement is public on
// purpose: once the deadline has passed anyone may trigger it.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/auctions", h.ListAuctions)
	r.GET("/auctions/:id", h.GetAuction)
	r.GET("/auctions/:id/refundable/:address", validation.AddressParamMiddleware(), h.GetRefundable)
	r.POST("/auctions/:id/end", h.EndAuction)
}

// RegisterProtectedRoutes sets up protected (auth-required) auction routes.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.POST("/auctions", h.CreateAuction)
	r.POST("/auctions/:id/start", h.StartAuction)
	r.POST("/auctions/:id/bids", h.PlaceBid)
	r.POST("/auctions/:id/withdrawals", h.Withdraw)
}

// CreateAuction handles POST /v1/auctions
func (h *Handler) CreateAuction(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	if errs := validation.Validate(
		validation.Required("assetId", req.AssetID),
		validation.ValidAddress("seller", req.Seller),
		validation.ValidAmount("startingPrice", req.StartingPrice),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": errs.Error(),
			"details": errs,
		})
		return
	}

	callerAddr := c.GetString("authAgentAddr")
	if !strings.EqualFold(callerAddr, req.Seller) {
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "unauthorized",
			"message": "Authenticated agent must be the seller",
		})
		return
	}

	a, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"auction": a})
}

// StartAuction handles POST /v1/auctions/:id/start
func (h *Handler) StartAuction(c *gin.Context) {
	a, err := h.service.Start(c.Request.Context(), c.Param("id"), c.GetString("authAgentAddr"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"auction": a})
}

type bidRequest struct {
	Amount string `json:"amount" binding:"required"`
}

// PlaceBid handles POST /v1/auctions/:id/bids
func (h *Handler) PlaceBid(c *gin.Context) {
	var req bidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	if errs := validation.Validate(
		validation.ValidAmount("amount", req.Amount),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": errs.Error(),
			"details": errs,
		})
		return
	}

	a, err := h.service.Bid(c.Request.Context(), c.Param("id"), c.GetString("authAgentAddr"), req.Amount)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"auction": a})
}

// Withdraw handles POST /v1/auctions/:id/withdrawals
func (h *Handler) Withdraw(c *gin.Context) {
	amount, err := h.service.Withdraw(c.Request.Context(), c.Param("id"), c.GetString("authAgentAddr"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"withdrawn": amount})
}

// EndAuction handles POST /v1/auctions/:id/end
func (h *Handler) EndAuction(c *gin.Context) {
	a, err := h.service.End(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"auction": a})
}

// GetAuction handles GET /v1/auctions/:id
func (h *Handler) GetAuction(c *gin.Context) {
	a, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"auction": a})
}

// ListAuctions handles GET /v1/auctions?status=active&limit=50
func (h *Handler) ListAuctions(c *gin.Context) {
	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
			if limit > 200 {
				limit = 200
			}
		}
	}

	status := Status(c.Query("status"))
	switch status {
	case "", StatusCreated, StatusActive, StatusEnded:
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_status",
			"message": "status must be one of created, active, ended",
		})
		return
	}

	result, err := h.service.List(c.Request.Context(), status, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"auctions": result,
		"count":    len(result),
	})
}

// GetRefundable handles GET /v1/auctions/:id/refundable/:address
func (h *Handler) GetRefundable(c *gin.Context) {
	a, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	addr := strings.ToLower(c.Param("address"))
	c.JSON(http.StatusOK, gin.H{
		"address":    addr,
		"refundable": a.RefundableOf(addr),
	})
}

// writeError maps service errors to HTTP responses.
func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"

	switch {
	case errors.Is(err, ErrAuctionNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, ErrUnauthorized):
		status, code = http.StatusForbidden, "unauthorized"
	case errors.Is(err, ErrAlreadyStarted):
		status, code = http.StatusConflict, "already_started"
	case errors.Is(err, ErrNotStarted):
		status, code = http.StatusConflict, "not_started"
	case errors.Is(err, ErrAlreadyEnded):
		status, code = http.StatusConflict, "already_ended"
	case errors.Is(err, ErrExpired):
		status, code = http.StatusConflict, "auction_expired"
	case errors.Is(err, ErrTooEarly):
		status, code = http.StatusConflict, "too_early"
	case errors.Is(err, ErrBidTooLow):
		status, code = http.StatusUnprocessableEntity, "bid_too_low"
	case errors.Is(err, ErrInvalidAmount):
		status, code = http.StatusBadRequest, "invalid_amount"
	case errors.Is(err, ledger.ErrInsufficientFunds):
		status, code = http.StatusPaymentRequired, "insufficient_funds"
	case errors.Is(err, ErrExternalCall):
		status, code = http.StatusBadGateway, "external_call_failed"
	}

	c.JSON(status, gin.H{
		"error":   code,
		"message": err.Error(),
	})
}

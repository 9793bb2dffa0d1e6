package assets

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/gavel/internal/validation"
)

// Handler provides HTTP endpoints for asset operations.
type Handler struct {
	registry *Registry
}

// NewHandler creates a new asset handler.
func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

// RegisterRoutes sets up public (read-only) asset routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/assets/:id", h.GetAsset)
	r.GET("/agents/:address/assets", validation.AddressParamMiddleware(), h.ListAssets)
}

// RegisterProtectedRoutes sets up protected (auth-required) asset routes.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.POST("/assets", h.RegisterAsset)
}

// RegisterAsset handles POST /v1/assets
func (h *Handler) RegisterAsset(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	if errs := validation.Validate(
		validation.Required("name", req.Name),
		validation.ValidAddress("owner", req.Owner),
		validation.MaxLength("description", req.Description, 2000),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": errs.Error(),
			"details": errs,
		})
		return
	}

	// The authenticated caller must be the initial owner.
	callerAddr := c.GetString("authAgentAddr")
	if !strings.EqualFold(callerAddr, req.Owner) {
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "unauthorized",
			"message": "Authenticated agent must be the asset owner",
		})
		return
	}

	asset, err := h.registry.Register(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "register_failed",
			"message": "Failed to register asset",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"asset": asset})
}

// GetAsset handles GET /v1/assets/:id
func (h *Handler) GetAsset(c *gin.Context) {
	asset, err := h.registry.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrAssetNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Asset not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"asset": asset})
}

// ListAssets handles GET /v1/agents/:address/assets
func (h *Handler) ListAssets(c *gin.Context) {
	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
			if limit > 200 {
				limit = 200
			}
		}
	}

	result, err := h.registry.ListByOwner(c.Request.Context(), c.Param("address"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"assets": result,
		"count":  len(result),
	})
}

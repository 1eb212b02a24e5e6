package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aq2208/bookstore-api/internal/adapter/http/apierror"
	"github.com/aq2208/bookstore-api/internal/adapter/http/middleware"
	"github.com/aq2208/bookstore-api/internal/adapter/observ"
	domain "github.com/aq2208/bookstore-api/internal/entity"
	"github.com/aq2208/bookstore-api/internal/logging"
	"github.com/aq2208/bookstore-api/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type CartHandler struct {
	cart   usecase.Cart
	export usecase.CartExport
}

func NewCartHandler(cart usecase.Cart, export usecase.CartExport) *CartHandler {
	return &CartHandler{cart: cart, export: export}
}

type addItemReq struct {
	BookID   int64 `json:"bookId" binding:"required"`
	Quantity int   `json:"quantity" binding:"gt=0"`
}

type updateItemReq struct {
	Quantity *int `json:"quantity" binding:"required,gte=0"`
}

type cartItemResp struct {
	BookID    int64           `json:"bookId"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type cartResp struct {
	UserID        string          `json:"userId"`
	Items         []cartItemResp  `json:"items"`
	Total         decimal.Decimal `json:"total"`
	ItemCount     int             `json:"itemCount"`
	TotalQuantity int             `json:"totalQuantity"`
}

func toCartResp(cart *domain.ShoppingCart) cartResp {
	items := make([]cartItemResp, 0, len(cart.Items))
	for _, it := range cart.Items {
		items = append(items, cartItemResp{
			BookID:    it.BookID,
			Title:     it.Title,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			Subtotal:  it.Subtotal(),
		})
	}
	return cartResp{
		UserID:        cart.UserID,
		Items:         items,
		Total:         cart.TotalPrice(),
		ItemCount:     cart.ItemCount(),
		TotalQuantity: cart.TotalQuantity(),
	}
}

// GetCart GET /api/v1/cart
func (h *CartHandler) GetCart(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	cart, err := h.cart.GetCart(ctx, middleware.Username(c))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResp(cart))
}

// AddItem POST /api/v1/cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	var req addItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	cart, err := h.cart.AddItem(ctx, middleware.Username(c), req.BookID, req.Quantity)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCartResp(cart))
}

// UpdateItem PUT /api/v1/cart/items/:bookId
func (h *CartHandler) UpdateItem(c *gin.Context) {
	bookID, ok := pathID(c, "bookId")
	if !ok {
		return
	}
	var req updateItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	cart, err := h.cart.UpdateItemQuantity(ctx, middleware.Username(c), bookID, *req.Quantity)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResp(cart))
}

// RemoveItem DELETE /api/v1/cart/items/:bookId
func (h *CartHandler) RemoveItem(c *gin.Context) {
	bookID, ok := pathID(c, "bookId")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	cart, err := h.cart.RemoveItem(ctx, middleware.Username(c), bookID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResp(cart))
}

// ClearCart DELETE /api/v1/cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.cart.ClearCart(ctx, middleware.Username(c)); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ExportCart POST /api/v1/cart/export[?async=true]
func (h *CartHandler) ExportCart(c *gin.Context) {
	user := middleware.Username(c)
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if c.Query("async") == "true" {
		err := h.export.RequestExport(ctx, user)
		observ.RecordExport(observ.ModeAsync, err)
		if errors.Is(err, usecase.ErrAsyncExportDisabled) {
			writeError(c, http.StatusServiceUnavailable, apierror.CodeInternal, "Async cart export is not available.")
			return
		}
		if err != nil {
			handleError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"message": "Cart export scheduled"})
		return
	}

	path, err := h.export.ExportCartForUser(ctx, user)
	observ.RecordExport(observ.ModeSync, err)
	if errors.Is(err, usecase.ErrExportNotConfigured) {
		logging.From(c).Error("cart export requested but no directory configured")
		writeError(c, http.StatusInternalServerError, apierror.CodeInternal, err.Error())
		return
	}
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart export successful", "filePath": path})
}

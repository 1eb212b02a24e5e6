package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/aq2208/bookstore-api/internal/adapter/http/apierror"
	domain "github.com/aq2208/bookstore-api/internal/entity"
	"github.com/aq2208/bookstore-api/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const (
	defaultPageSize = 10
	idempotencyHdr  = "X-Idempotency-Key"
)

type BookHandler struct {
	books usecase.BookCatalog
	links linker
}

func NewBookHandler(books usecase.BookCatalog, baseURL string) *BookHandler {
	return &BookHandler{books: books, links: linker{baseURL: baseURL}}
}

type bookReq struct {
	Title           string           `json:"title" binding:"required"`
	Author          string           `json:"author" binding:"required"`
	Category        string           `json:"category" binding:"required"`
	Price           *decimal.Decimal `json:"price" binding:"required"`
	PublicationYear int              `json:"publicationYear" binding:"gt=0"`
	Quantity        *int             `json:"quantity" binding:"required,gte=0"`
}

type partialBookReq struct {
	Price    *decimal.Decimal `json:"price"`
	Quantity *int             `json:"quantity" binding:"omitempty,gte=0"`
}

// priceError covers the one rule binding tags cannot express on decimal.Decimal.
func priceError(p *decimal.Decimal) string {
	if p != nil && !p.IsPositive() {
		return "price: must be positive"
	}
	return ""
}

// CreateBook POST /api/v1/books
func (h *BookHandler) CreateBook(c *gin.Context) {
	var req bookReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if msg := priceError(req.Price); msg != "" {
		writeError(c, http.StatusBadRequest, apierror.CodeValidation, msg)
		return
	}

	book, err := domain.NewBook(0, req.Title, req.Author, req.Category, *req.Price, req.PublicationYear, *req.Quantity)
	if err != nil {
		handleError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	saved, err := h.books.AddBook(ctx, usecase.AddBookInput{
		Book:           book,
		Scope:          "http",
		IdempotencyKey: c.GetHeader(idempotencyHdr),
	})
	if err != nil {
		handleError(c, err)
		return
	}
	c.Header("Location", h.links.book(c, saved.ID))
	c.JSON(http.StatusCreated, h.links.toResource(c, saved))
}

// GetBook GET /api/v1/books/:id
func (h *BookHandler) GetBook(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	b, err := h.books.GetBook(ctx, id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.links.toResource(c, b))
}

// ListBooks GET /api/v1/books?page=0&size=10
func (h *BookHandler) ListBooks(c *gin.Context) {
	page, err1 := strconv.Atoi(c.DefaultQuery("page", "0"))
	size, err2 := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(defaultPageSize)))
	if err1 != nil || err2 != nil {
		writeError(c, http.StatusBadRequest, apierror.CodeBadRequest, "Page and size must be numbers.")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	res, err := h.books.GetAllBooks(ctx, page, size)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.links.toPage(c, res))
}

// UpdateBook PUT /api/v1/books/:id
func (h *BookHandler) UpdateBook(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req bookReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if msg := priceError(req.Price); msg != "" {
		writeError(c, http.StatusBadRequest, apierror.CodeValidation, msg)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	b, err := h.books.UpdateBook(ctx, id, domain.UpdateBook{
		Title:           &req.Title,
		Author:          &req.Author,
		Category:        &req.Category,
		Price:           req.Price,
		PublicationYear: &req.PublicationYear,
		Quantity:        req.Quantity,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.links.toResource(c, b))
}

// PatchBook PATCH /api/v1/books/:id
func (h *BookHandler) PatchBook(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req partialBookReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if msg := priceError(req.Price); msg != "" {
		writeError(c, http.StatusBadRequest, apierror.CodeValidation, msg)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	b, err := h.books.PartialUpdateBook(ctx, id, domain.PartialUpdateBook{Price: req.Price, Quantity: req.Quantity})
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.links.toResource(c, b))
}

// DeleteBook DELETE /api/v1/books/:id
func (h *BookHandler) DeleteBook(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.books.DeleteBook(ctx, id); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		writeError(c, http.StatusBadRequest, apierror.CodeBadRequest, "ID must be a number.")
		return 0, false
	}
	return id, true
}

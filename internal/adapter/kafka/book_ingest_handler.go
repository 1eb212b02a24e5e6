package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/aq2208/bookstore-api/internal/adapter/observ"
	domain "github.com/aq2208/bookstore-api/internal/entity"
	"github.com/aq2208/bookstore-api/internal/logging"
	"github.com/aq2208/bookstore-api/internal/usecase"
	"github.com/shopspring/decimal"
)

const ingestScope = "kafka"

// BookIngestHandler adds books published on the ingest topic to the catalog.
type BookIngestHandler struct {
	catalog usecase.BookCatalog
}

func NewBookIngestHandler(catalog usecase.BookCatalog) *BookIngestHandler {
	return &BookIngestHandler{catalog: catalog}
}

func (h *BookIngestHandler) Handle(ctx context.Context, ev usecase.BookIngestMsg) error {
	err := h.ingest(ctx, ev)
	observ.BooksIngested.WithLabelValues(observ.Result(err)).Inc()
	return err
}

func (h *BookIngestHandler) ingest(ctx context.Context, ev usecase.BookIngestMsg) error {
	price, err := decimal.NewFromString(ev.Price)
	if err != nil {
		return fmt.Errorf("%w: price %q: %v", ErrSkip, ev.Price, err)
	}
	book, err := domain.NewBook(0, ev.Title, ev.Author, ev.Category, price, ev.PublicationYear, ev.Quantity)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSkip, err)
	}

	saved, err := h.catalog.AddBook(ctx, usecase.AddBookInput{Book: book, Scope: ingestScope, IdempotencyKey: ev.Key})
	if errors.Is(err, usecase.ErrDuplicate) {
		// another delivery holds the key; retried until it finishes or releases it
		return fmt.Errorf("book %q in flight: %w", ev.Key, err)
	}
	if err != nil {
		return err
	}
	logging.FromCtx(ctx).Info("book ingested", "book_id", saved.ID, "key", ev.Key)
	return nil
}

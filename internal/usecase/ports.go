package usecase

import (
	"context"
	"errors"

	domain "github.com/aq2208/bookstore-api/internal/entity"
)

// ErrRecordNotFound is returned by repository adapters when nothing matches.
var ErrRecordNotFound = errors.New("record not found")

// PagedResult is a zero-based page of T.
type PagedResult[T any] struct {
	Content       []T
	TotalElements int64
	TotalPages    int
	PageNumber    int
	PageSize      int
}

func NewPagedResult[T any](content []T, total int64, page, size int) PagedResult[T] {
	pages := 0
	if size > 0 {
		pages = int((total + int64(size) - 1) / int64(size))
	}
	return PagedResult[T]{
		Content:       content,
		TotalElements: total,
		TotalPages:    pages,
		PageNumber:    page,
		PageSize:      size,
	}
}

// --- outbound ports ---

type BookRepository interface {
	Save(ctx context.Context, b *domain.Book) (*domain.Book, error)
	FindByID(ctx context.Context, id int64) (*domain.Book, error)
	FindAll(ctx context.Context, page, size int) (PagedResult[*domain.Book], error)
	Update(ctx context.Context, b *domain.Book) (*domain.Book, error)
	DeleteByID(ctx context.Context, id int64) error
}

type CartRepository interface {
	FindByUserID(ctx context.Context, userID string) (*domain.ShoppingCart, error)
	Save(ctx context.Context, c *domain.ShoppingCart) (*domain.ShoppingCart, error)
	DeleteByUserID(ctx context.Context, userID string) error
}

// BookCache is a best-effort read-through cache; callers ignore its errors.
type BookCache interface {
	Get(ctx context.Context, id int64) (*domain.Book, bool, error)
	Set(ctx context.Context, b *domain.Book) error
	Delete(ctx context.Context, id int64) error
}

type IdempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
	// Release drops an in-flight lock so a failed create can be retried.
	Release(ctx context.Context, scope, key string) error
}

type EventPublisher interface {
	PublishBookEvent(ctx context.Context, ev BookEventMsg) error
	PublishExportRequested(ctx context.Context, msg ExportCartRequestedMsg) error
}

// CartWriter persists an exported cart document and returns where it went.
type CartWriter interface {
	Write(ctx context.Context, name string, doc []byte) (string, error)
}

// --- inbound use cases (implemented by the services, consumed by adapters) ---

type BookCatalog interface {
	AddBook(ctx context.Context, in AddBookInput) (*domain.Book, error)
	GetBook(ctx context.Context, id int64) (*domain.Book, error)
	GetAllBooks(ctx context.Context, page, size int) (PagedResult[*domain.Book], error)
	UpdateBook(ctx context.Context, id int64, u domain.UpdateBook) (*domain.Book, error)
	PartialUpdateBook(ctx context.Context, id int64, u domain.PartialUpdateBook) (*domain.Book, error)
	DeleteBook(ctx context.Context, id int64) error
}

type Cart interface {
	AddItem(ctx context.Context, userID string, bookID int64, quantity int) (*domain.ShoppingCart, error)
	UpdateItemQuantity(ctx context.Context, userID string, bookID int64, quantity int) (*domain.ShoppingCart, error)
	RemoveItem(ctx context.Context, userID string, bookID int64) (*domain.ShoppingCart, error)
	GetCart(ctx context.Context, userID string) (*domain.ShoppingCart, error)
	ClearCart(ctx context.Context, userID string) error
}

type CartExport interface {
	ExportCart(ctx context.Context, cart *domain.ShoppingCart) (string, error)
	ExportCartForUser(ctx context.Context, userID string) (string, error)
	RequestExport(ctx context.Context, userID string) error
}

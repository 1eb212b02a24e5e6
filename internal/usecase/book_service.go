package usecase

import (
	"context"
	"errors"
	"strconv"
	"time"

	domain "github.com/aq2208/bookstore-api/internal/entity"
	"github.com/aq2208/bookstore-api/internal/logging"
	"github.com/google/uuid"
)

const MaxPageSize = 100

type AddBookInput struct {
	Book *domain.Book
	// Scope + IdempotencyKey deduplicate retried creates; both optional.
	Scope, IdempotencyKey string
}

type BookService struct {
	repo   BookRepository
	cache  BookCache        // optional
	idem   IdempotencyStore // optional
	events EventPublisher   // optional
}

type BookServiceOption func(*BookService)

func WithBookCache(c BookCache) BookServiceOption         { return func(s *BookService) { s.cache = c } }
func WithIdempotency(i IdempotencyStore) BookServiceOption { return func(s *BookService) { s.idem = i } }
func WithBookEvents(p EventPublisher) BookServiceOption    { return func(s *BookService) { s.events = p } }

func NewBookService(repo BookRepository, opts ...BookServiceOption) *BookService {
	s := &BookService{repo: repo}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ BookCatalog = (*BookService)(nil)

func (s *BookService) AddBook(ctx context.Context, in AddBookInput) (*domain.Book, error) {
	l := logging.FromCtx(ctx)
	useIdem := s.idem != nil && in.IdempotencyKey != ""

	if useIdem {
		// Fast path: idempotency recall
		if v, ok, _ := s.idem.Recall(ctx, in.Scope, in.IdempotencyKey); ok {
			if id, err := strconv.ParseInt(v, 10, 64); err == nil {
				l.Info("replaying idempotent book create", "book_id", id)
				return s.GetBook(ctx, id)
			}
		}
		ok, err := s.idem.TryLock(ctx, in.Scope, in.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrDuplicate
		}
	}

	l.Info("adding new book", "title", in.Book.Title, "author", in.Book.Author)
	saved, err := s.repo.Save(ctx, in.Book)
	if err != nil {
		l.Error("error while adding book", "title", in.Book.Title, "err", err)
		if useIdem {
			if rerr := s.idem.Release(ctx, in.Scope, in.IdempotencyKey); rerr != nil {
				l.Warn("idempotency release failed", "key", in.IdempotencyKey, "err", rerr)
			}
		}
		return nil, dataAccess(err)
	}
	l.Info("book added", "book_id", saved.ID)

	if useIdem {
		_ = s.idem.Remember(ctx, in.Scope, in.IdempotencyKey, strconv.FormatInt(saved.ID, 10))
	}
	s.publish(ctx, BookCreated, saved)
	return saved, nil
}

func (s *BookService) GetBook(ctx context.Context, id int64) (*domain.Book, error) {
	l := logging.FromCtx(ctx)
	if id <= 0 {
		l.Warn("attempted to get book with empty id")
		return nil, invalidRequest("Book id must be provided.")
	}

	if s.cache != nil {
		if b, ok, err := s.cache.Get(ctx, id); err == nil && ok {
			return b, nil
		}
	}

	b, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, ErrRecordNotFound) {
		l.Warn("book not found", "book_id", id)
		return nil, &NotFoundError{ID: id}
	}
	if err != nil {
		l.Error("error while retrieving book", "book_id", id, "err", err)
		return nil, dataAccess(err)
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, b)
	}
	return b, nil
}

// GetAllBooks returns a zero-based page; size is clamped to MaxPageSize.
func (s *BookService) GetAllBooks(ctx context.Context, page, size int) (PagedResult[*domain.Book], error) {
	l := logging.FromCtx(ctx)
	if page < 0 {
		l.Warn("invalid page index", "page", page)
		return PagedResult[*domain.Book]{}, invalidRequest("Page index must not be negative.")
	}
	if size <= 0 {
		l.Warn("invalid page size", "size", size)
		return PagedResult[*domain.Book]{}, invalidRequest("Page size must be greater than zero.")
	}
	size = min(size, MaxPageSize)

	res, err := s.repo.FindAll(ctx, page, size)
	if err != nil {
		l.Error("error while listing books", "page", page, "size", size, "err", err)
		return PagedResult[*domain.Book]{}, dataAccess(err)
	}
	l.Debug("listed books", "count", len(res.Content), "page", page, "size", size)
	return res, nil
}

func (s *BookService) UpdateBook(ctx context.Context, id int64, u domain.UpdateBook) (*domain.Book, error) {
	return s.mutate(ctx, id, "full", func(b *domain.Book) error { return b.Update(u) })
}

func (s *BookService) PartialUpdateBook(ctx context.Context, id int64, u domain.PartialUpdateBook) (*domain.Book, error) {
	return s.mutate(ctx, id, "partial", func(b *domain.Book) error { return b.PartialUpdate(u) })
}

func (s *BookService) mutate(ctx context.Context, id int64, kind string, apply func(*domain.Book) error) (*domain.Book, error) {
	l := logging.FromCtx(ctx).With("book_id", id, "update", kind)

	current, err := s.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}
	// never mutate a cached instance in place
	b := *current
	if err := apply(&b); err != nil {
		l.Warn("domain validation failed on update", "err", err)
		return nil, &InvalidRequestError{Msg: err.Error(), Err: err}
	}

	updated, err := s.repo.Update(ctx, &b)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, &NotFoundError{ID: id}
	}
	if err != nil {
		l.Error("error while updating book", "err", err)
		return nil, dataAccess(err)
	}
	l.Info("book updated")

	s.invalidate(ctx, id)
	s.publish(ctx, BookUpdated, updated)
	return updated, nil
}

func (s *BookService) DeleteBook(ctx context.Context, id int64) error {
	b, err := s.GetBook(ctx, id)
	if err != nil {
		return err
	}
	l := logging.FromCtx(ctx).With("book_id", id)
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		l.Error("error while deleting book", "err", err)
		return dataAccess(err)
	}
	l.Info("book deleted")

	s.invalidate(ctx, id)
	s.publish(ctx, BookDeleted, b)
	return nil
}

func (s *BookService) invalidate(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, id); err != nil {
		logging.FromCtx(ctx).Warn("cache invalidation failed", "book_id", id, "err", err)
	}
}

func (s *BookService) publish(ctx context.Context, t BookEventType, b *domain.Book) {
	if s.events == nil {
		return
	}
	ev := BookEventMsg{
		EventID:    uuid.NewString(),
		Type:       t,
		BookID:     b.ID,
		Title:      b.Title,
		Price:      b.Price.String(),
		Quantity:   b.Quantity,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.events.PublishBookEvent(ctx, ev); err != nil {
		logging.FromCtx(ctx).Warn("publish book event failed", "type", t, "book_id", b.ID, "err", err)
	}
}

package usecase_test

import (
	"context"
	"testing"

	"github.com/aq2208/bookstore-api/internal/adapter/repo"
	domain "github.com/aq2208/bookstore-api/internal/entity"
	"github.com/aq2208/bookstore-api/internal/usecase"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBook(title string) *domain.Book {
	return &domain.Book{
		Title: title, Author: "Frank Herbert", Category: "Sci-Fi",
		Price: decimal.RequireFromString("19.90"), PublicationYear: 1965, Quantity: 3,
	}
}

func seed(t *testing.T, svc *usecase.BookService, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := svc.AddBook(context.Background(), usecase.AddBookInput{Book: newBook("Dune")})
		require.NoError(t, err)
	}
}

func TestBookService_AddAndGet(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	svc := usecase.NewBookService(repo.NewMemoryBookRepo(), usecase.WithBookEvents(pub))

	saved, err := svc.AddBook(ctx, usecase.AddBookInput{Book: newBook("Dune")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), saved.ID)
	assert.Equal(t, []usecase.BookEventType{usecase.BookCreated}, pub.types())

	got, err := svc.GetBook(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Title)
}

func TestBookService_GetBookErrors(t *testing.T) {
	ctx := context.Background()
	svc := usecase.NewBookService(repo.NewMemoryBookRepo())

	_, err := svc.GetBook(ctx, 0)
	require.ErrorIs(t, err, usecase.ErrInvalidRequest)
	assert.Equal(t, "Book id must be provided.", err.Error())

	_, err = svc.GetBook(ctx, 42)
	require.ErrorIs(t, err, usecase.ErrNotFound)
	assert.Equal(t, "Request not found with id 42", err.Error())

	_, err = usecase.NewBookService(brokenBooks{}).GetBook(ctx, 1)
	require.ErrorIs(t, err, usecase.ErrInvalidRequest)
	assert.Equal(t, "Database error: boom", err.Error())
}

func TestBookService_GetAllBooks(t *testing.T) {
	ctx := context.Background()
	svc := usecase.NewBookService(repo.NewMemoryBookRepo())
	seed(t, svc, 3)

	page, err := svc.GetAllBooks(ctx, 0, 2)
	require.NoError(t, err)
	assert.Len(t, page.Content, 2)
	assert.Equal(t, int64(3), page.TotalElements)
	assert.Equal(t, 2, page.TotalPages)

	_, err = svc.GetAllBooks(ctx, -1, 2)
	assert.ErrorIs(t, err, usecase.ErrInvalidRequest)
	_, err = svc.GetAllBooks(ctx, 0, 0)
	assert.ErrorIs(t, err, usecase.ErrInvalidRequest)

	clamped, err := svc.GetAllBooks(ctx, 0, 5000)
	require.NoError(t, err)
	assert.Equal(t, usecase.MaxPageSize, clamped.PageSize)
}

func TestBookService_UpdateBook(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	pub := &fakePublisher{}
	svc := usecase.NewBookService(repo.NewMemoryBookRepo(), usecase.WithBookCache(cache), usecase.WithBookEvents(pub))
	seed(t, svc, 1)

	title := "Dune Messiah"
	qty := 10
	updated, err := svc.UpdateBook(ctx, 1, domain.UpdateBook{Title: &title, Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, "Dune Messiah", updated.Title)
	assert.Equal(t, 10, updated.Quantity)
	assert.Equal(t, "Frank Herbert", updated.Author, "untouched fields survive")
	assert.Contains(t, cache.deletes, int64(1))
	assert.Equal(t, []usecase.BookEventType{usecase.BookCreated, usecase.BookUpdated}, pub.types())

	t.Run("invalid change is not persisted", func(t *testing.T) {
		neg := -1
		_, err := svc.UpdateBook(ctx, 1, domain.UpdateBook{Quantity: &neg})
		require.ErrorIs(t, err, usecase.ErrInvalidRequest)
		assert.ErrorIs(t, err, domain.ErrInvalid, "the domain cause stays inspectable")

		b, err := svc.GetBook(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 10, b.Quantity)
	})

	t.Run("missing book", func(t *testing.T) {
		_, err := svc.UpdateBook(ctx, 99, domain.UpdateBook{Title: &title})
		assert.ErrorIs(t, err, usecase.ErrNotFound)
	})
}

func TestBookService_PartialUpdateBook(t *testing.T) {
	ctx := context.Background()
	svc := usecase.NewBookService(repo.NewMemoryBookRepo())
	seed(t, svc, 1)

	price := decimal.RequireFromString("5.50")
	b, err := svc.PartialUpdateBook(ctx, 1, domain.PartialUpdateBook{Price: &price})
	require.NoError(t, err)
	assert.True(t, b.Price.Equal(price))
	assert.Equal(t, 3, b.Quantity)

	zero := decimal.Zero
	_, err = svc.PartialUpdateBook(ctx, 1, domain.PartialUpdateBook{Price: &zero})
	assert.ErrorIs(t, err, usecase.ErrInvalidRequest)
}

func TestBookService_CacheDoesNotLeakMutations(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	svc := usecase.NewBookService(repo.NewMemoryBookRepo(), usecase.WithBookCache(cache))
	seed(t, svc, 1)

	_, err := svc.GetBook(ctx, 1)
	require.NoError(t, err)
	_, err = svc.GetBook(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)

	neg := -5
	_, err = svc.PartialUpdateBook(ctx, 1, domain.PartialUpdateBook{Quantity: &neg})
	require.Error(t, err)
	b, _ := svc.GetBook(ctx, 1)
	assert.Equal(t, 3, b.Quantity)
}

func TestBookService_DeleteBook(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	svc := usecase.NewBookService(repo.NewMemoryBookRepo(), usecase.WithBookEvents(pub))
	seed(t, svc, 1)

	require.NoError(t, svc.DeleteBook(ctx, 1))
	_, err := svc.GetBook(ctx, 1)
	assert.ErrorIs(t, err, usecase.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteBook(ctx, 1), usecase.ErrNotFound)
	assert.Equal(t, usecase.BookDeleted, pub.types()[1])
}

func TestBookService_IdempotentAdd(t *testing.T) {
	ctx := context.Background()
	books := repo.NewMemoryBookRepo()
	svc := usecase.NewBookService(books, usecase.WithIdempotency(newFakeIdem()))

	in := usecase.AddBookInput{Book: newBook("Dune"), Scope: "kafka", IdempotencyKey: "k-1"}
	first, err := svc.AddBook(ctx, in)
	require.NoError(t, err)
	again, err := svc.AddBook(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	page, err := books.FindAll(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.TotalElements)
}

func TestBookService_IdempotentAddInFlight(t *testing.T) {
	ctx := context.Background()
	idem := newFakeIdem()
	_, _ = idem.TryLock(ctx, "http", "k-2")
	svc := usecase.NewBookService(repo.NewMemoryBookRepo(), usecase.WithIdempotency(idem))

	_, err := svc.AddBook(ctx, usecase.AddBookInput{Book: newBook("Dune"), Scope: "http", IdempotencyKey: "k-2"})
	assert.ErrorIs(t, err, usecase.ErrDuplicate)
}

func TestBookService_PublishFailureIsNotFatal(t *testing.T) {
	pub := &fakePublisher{err: errBoom}
	svc := usecase.NewBookService(repo.NewMemoryBookRepo(), usecase.WithBookEvents(pub))
	_, err := svc.AddBook(context.Background(), usecase.AddBookInput{Book: newBook("Dune")})
	assert.NoError(t, err)
}

func TestBookService_SaveFailure(t *testing.T) {
	_, err := usecase.NewBookService(brokenBooks{}).AddBook(context.Background(), usecase.AddBookInput{Book: newBook("Dune")})
	require.ErrorIs(t, err, usecase.ErrInvalidRequest)
	assert.ErrorIs(t, err, errBoom)
}

func TestBookService_IdempotentAddRetryAfterSaveFailure(t *testing.T) {
	ctx := context.Background()
	books := &flakyBooks{BookRepository: repo.NewMemoryBookRepo(), failures: 1}
	svc := usecase.NewBookService(books, usecase.WithIdempotency(newFakeIdem()))

	in := usecase.AddBookInput{Book: newBook("Dune"), Scope: "http", IdempotencyKey: "k-3"}
	_, err := svc.AddBook(ctx, in)
	require.ErrorIs(t, err, errBoom)

	saved, err := svc.AddBook(ctx, in)
	require.NoError(t, err, "a failed create must not hold the key")
	assert.Equal(t, int64(1), saved.ID)

	again, err := svc.AddBook(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, again.ID)
}

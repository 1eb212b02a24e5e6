package repo

import (
	"context"
	"slices"
	"sync"

	domain "github.com/aq2208/bookstore-api/internal/entity"
	"github.com/aq2208/bookstore-api/internal/usecase"
)

// MemoryBookRepo backs storage.driver=memory and tests.
type MemoryBookRepo struct {
	mu     sync.RWMutex
	nextID int64
	books  map[int64]domain.Book
}

func NewMemoryBookRepo() *MemoryBookRepo {
	return &MemoryBookRepo{books: make(map[int64]domain.Book)}
}

func (r *MemoryBookRepo) Save(_ context.Context, b *domain.Book) (*domain.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *b
	if cp.ID == 0 {
		r.nextID++
		cp.ID = r.nextID
	} else if cp.ID > r.nextID {
		r.nextID = cp.ID
	}
	r.books[cp.ID] = cp
	out := cp
	return &out, nil
}

func (r *MemoryBookRepo) FindByID(_ context.Context, id int64) (*domain.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.books[id]
	if !ok {
		return nil, usecase.ErrRecordNotFound
	}
	return &b, nil
}

func (r *MemoryBookRepo) FindAll(_ context.Context, page, size int) (usecase.PagedResult[*domain.Book], error) {
	r.mu.RLock()
	ids := make([]int64, 0, len(r.books))
	for id := range r.books {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	total := int64(len(ids))
	content := make([]*domain.Book, 0, min(max(size, 0), len(ids)))
	if offset, ok := pageOffset(page, size, total); ok {
		for i := int(offset); i < len(ids) && len(content) < size; i++ {
			b := r.books[ids[i]]
			content = append(content, &b)
		}
	}
	r.mu.RUnlock()

	return usecase.NewPagedResult(content, total, page, size), nil
}

func (r *MemoryBookRepo) Update(_ context.Context, b *domain.Book) (*domain.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.books[b.ID]; !ok {
		return nil, usecase.ErrRecordNotFound
	}
	r.books[b.ID] = *b
	out := *b
	return &out, nil
}

func (r *MemoryBookRepo) DeleteByID(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.books, id)
	return nil
}

var _ usecase.BookRepository = (*MemoryBookRepo)(nil)

// pageOffset returns the first row of a zero-based page, or false when the
// page lies past the last row. page*size is only computed in range, so a huge
// page index cannot overflow.
func pageOffset(page, size int, total int64) (int64, bool) {
	if page < 0 || size <= 0 || total <= 0 {
		return 0, false
	}
	if int64(page) > (total-1)/int64(size) {
		return 0, false
	}
	return int64(page) * int64(size), true
}

type MemoryCartRepo struct {
	mu    sync.RWMutex
	carts map[string][]domain.CartItem
}

func NewMemoryCartRepo() *MemoryCartRepo {
	return &MemoryCartRepo{carts: make(map[string][]domain.CartItem)}
}

func (r *MemoryCartRepo) FindByUserID(_ context.Context, userID string) (*domain.ShoppingCart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items, ok := r.carts[userID]
	if !ok {
		return nil, usecase.ErrRecordNotFound
	}
	return domain.NewShoppingCart(userID, items...), nil
}

func (r *MemoryCartRepo) Save(_ context.Context, c *domain.ShoppingCart) (*domain.ShoppingCart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.carts[c.UserID] = slices.Clone(c.Items)
	return c, nil
}

func (r *MemoryCartRepo) DeleteByUserID(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, userID)
	return nil
}

var _ usecase.CartRepository = (*MemoryCartRepo)(nil)

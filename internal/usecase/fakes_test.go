package usecase_test

import (
	"context"
	"errors"
	"sync"

	domain "github.com/aq2208/bookstore-api/internal/entity"
	"github.com/aq2208/bookstore-api/internal/usecase"
)

var errBoom = errors.New("boom")

type fakeCache struct {
	mu      sync.Mutex
	books   map[int64]domain.Book
	hits    int
	deletes []int64
}

func newFakeCache() *fakeCache { return &fakeCache{books: map[int64]domain.Book{}} }

func (c *fakeCache) Get(_ context.Context, id int64) (*domain.Book, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.books[id]
	if ok {
		c.hits++
	}
	return &b, ok, nil
}

func (c *fakeCache) Set(_ context.Context, b *domain.Book) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.books[b.ID] = *b
	return nil
}

func (c *fakeCache) Delete(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.books, id)
	c.deletes = append(c.deletes, id)
	return nil
}

type fakeIdem struct {
	locked map[string]bool
	values map[string]string
}

func newFakeIdem() *fakeIdem {
	return &fakeIdem{locked: map[string]bool{}, values: map[string]string{}}
}

func (f *fakeIdem) TryLock(_ context.Context, scope, key string) (bool, error) {
	k := scope + ":" + key
	if f.locked[k] {
		return false, nil
	}
	f.locked[k] = true
	return true, nil
}

func (f *fakeIdem) Remember(_ context.Context, scope, key, value string) error {
	f.values[scope+":"+key] = value
	return nil
}

func (f *fakeIdem) Recall(_ context.Context, scope, key string) (string, bool, error) {
	v, ok := f.values[scope+":"+key]
	return v, ok, nil
}

func (f *fakeIdem) Release(_ context.Context, scope, key string) error {
	delete(f.locked, scope+":"+key)
	return nil
}

type fakePublisher struct {
	mu      sync.Mutex
	events  []usecase.BookEventMsg
	exports []usecase.ExportCartRequestedMsg
	err     error
}

func (p *fakePublisher) PublishBookEvent(_ context.Context, ev usecase.BookEventMsg) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *fakePublisher) PublishExportRequested(_ context.Context, msg usecase.ExportCartRequestedMsg) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exports = append(p.exports, msg)
	return p.err
}

func (p *fakePublisher) types() []usecase.BookEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]usecase.BookEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// brokenBooks fails every call, like a database that went away.
type brokenBooks struct{}

func (brokenBooks) Save(context.Context, *domain.Book) (*domain.Book, error) { return nil, errBoom }
func (brokenBooks) FindByID(context.Context, int64) (*domain.Book, error)   { return nil, errBoom }
func (brokenBooks) FindAll(context.Context, int, int) (usecase.PagedResult[*domain.Book], error) {
	return usecase.PagedResult[*domain.Book]{}, errBoom
}
func (brokenBooks) Update(context.Context, *domain.Book) (*domain.Book, error) { return nil, errBoom }
func (brokenBooks) DeleteByID(context.Context, int64) error                   { return errBoom }

// flakyBooks fails the first n saves, then behaves.
type flakyBooks struct {
	usecase.BookRepository
	failures int
}

func (f *flakyBooks) Save(ctx context.Context, b *domain.Book) (*domain.Book, error) {
	if f.failures > 0 {
		f.failures--
		return nil, errBoom
	}
	return f.BookRepository.Save(ctx, b)
}

type brokenCarts struct{}

func (brokenCarts) FindByUserID(context.Context, string) (*domain.ShoppingCart, error) {
	return nil, errBoom
}
func (brokenCarts) Save(context.Context, *domain.ShoppingCart) (*domain.ShoppingCart, error) {
	return nil, errBoom
}
func (brokenCarts) DeleteByUserID(context.Context, string) error { return errBoom }

type memWriter struct {
	files map[string][]byte
	err   error
}

func (w *memWriter) Write(_ context.Context, name string, doc []byte) (string, error) {
	if w.err != nil {
		return "", w.err
	}
	if w.files == nil {
		w.files = map[string][]byte{}
	}
	w.files[name] = doc
	return "/exports/" + name, nil
}

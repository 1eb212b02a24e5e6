package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	domain "github.com/aq2208/bookstore-api/internal/entity"
	"github.com/aq2208/bookstore-api/internal/usecase"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type bookRecord struct {
	ID              int64           `json:"id"`
	Title           string          `json:"title"`
	Author          string          `json:"author"`
	Category        string          `json:"category"`
	Price           decimal.Decimal `json:"price"`
	PublicationYear int             `json:"publicationYear"`
	Quantity        int             `json:"quantity"`
}

type RedisBookCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisBookCache(rdb *redis.Client, ttl time.Duration) *RedisBookCache {
	return &RedisBookCache{rdb: rdb, ttl: ttl}
}

func bookKey(id int64) string { return "book:" + strconv.FormatInt(id, 10) }

func (r *RedisBookCache) Get(ctx context.Context, id int64) (*domain.Book, bool, error) {
	raw, err := r.rdb.Get(ctx, bookKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var rec bookRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		// drop the bad entry; the next read repopulates it
		_ = r.rdb.Del(ctx, bookKey(id)).Err()
		return nil, false, nil
	}
	return &domain.Book{
		ID:              rec.ID,
		Title:           rec.Title,
		Author:          rec.Author,
		Category:        rec.Category,
		Price:           rec.Price,
		PublicationYear: rec.PublicationYear,
		Quantity:        rec.Quantity,
	}, true, nil
}

func (r *RedisBookCache) Set(ctx context.Context, b *domain.Book) error {
	raw, err := json.Marshal(bookRecord{
		ID:              b.ID,
		Title:           b.Title,
		Author:          b.Author,
		Category:        b.Category,
		Price:           b.Price,
		PublicationYear: b.PublicationYear,
		Quantity:        b.Quantity,
	})
	if err != nil {
		return err
	}
	// ttl <= 0 means no expiry
	return r.rdb.Set(ctx, bookKey(b.ID), raw, max(r.ttl, 0)).Err()
}

func (r *RedisBookCache) Delete(ctx context.Context, id int64) error {
	return r.rdb.Del(ctx, bookKey(id)).Err()
}

var _ usecase.BookCache = (*RedisBookCache)(nil)

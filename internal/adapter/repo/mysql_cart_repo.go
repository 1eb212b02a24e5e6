package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	domain "github.com/aq2208/bookstore-api/internal/entity"
	"github.com/aq2208/bookstore-api/internal/logging"
	"github.com/aq2208/bookstore-api/internal/usecase"
	"github.com/shopspring/decimal"
)

// Persistence shape (kept out of domain): the whole cart lives in one JSON column.
type cartRecord struct {
	UserID string           `json:"userId"`
	Items  []cartItemRecord `json:"items"`
}

type cartItemRecord struct {
	BookID    int64           `json:"bookId"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
}

type MySQLCartRepo struct {
	db  *sql.DB
	log *slog.Logger
}

func NewMySQLCartRepo(db *sql.DB) *MySQLCartRepo {
	return &MySQLCartRepo{db: db, log: logging.New("cart-repo")}
}

// FindByUserID treats an undecodable blob like a missing cart, so a corrupt row
// is replaced on the next save instead of locking the user out.
func (r *MySQLCartRepo) FindByUserID(ctx context.Context, userID string) (*domain.ShoppingCart, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx, `SELECT cart_json FROM shopping_cart WHERE user_id=?`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, usecase.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	cart, err := decodeCart(userID, raw)
	if err != nil {
		r.log.Error("error deserializing cart json", "user", userID, "err", err)
		return nil, usecase.ErrRecordNotFound
	}
	return cart, nil
}

func (r *MySQLCartRepo) Save(ctx context.Context, c *domain.ShoppingCart) (*domain.ShoppingCart, error) {
	raw, err := encodeCart(c)
	if err != nil {
		return nil, fmt.Errorf("serialize cart: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO shopping_cart (user_id,cart_json,updated_at)
VALUES (?,?,NOW())
ON DUPLICATE KEY UPDATE cart_json = VALUES(cart_json), updated_at = NOW()
`, c.UserID, raw)
	if err != nil {
		return nil, fmt.Errorf("upsert cart: %w", err)
	}
	return c, nil
}

func (r *MySQLCartRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM shopping_cart WHERE user_id = ?`, userID)
	return err
}

func encodeCart(c *domain.ShoppingCart) ([]byte, error) {
	rec := cartRecord{UserID: c.UserID, Items: make([]cartItemRecord, 0, len(c.Items))}
	for _, it := range c.Items {
		rec.Items = append(rec.Items, cartItemRecord{
			BookID:    it.BookID,
			Title:     it.Title,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		})
	}
	return json.Marshal(rec)
}

// decodeCart rebuilds items through the domain constructor so stored data
// obeys the same rules as fresh input.
func decodeCart(userID string, raw []byte) (*domain.ShoppingCart, error) {
	var rec cartRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	items := make([]domain.CartItem, 0, len(rec.Items))
	for _, r := range rec.Items {
		it, err := domain.NewCartItem(r.BookID, r.Title, r.UnitPrice, r.Quantity)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", r.BookID, err)
		}
		items = append(items, *it)
	}
	return domain.NewShoppingCart(userID, items...), nil
}

var _ usecase.CartRepository = (*MySQLCartRepo)(nil)

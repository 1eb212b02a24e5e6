package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	domain "github.com/aq2208/bookstore-api/internal/entity"
	"github.com/aq2208/bookstore-api/internal/logging"
	"github.com/shopspring/decimal"
)

var (
	ErrExportNotConfigured = errors.New("Cart export directory is not configured")
	ErrAsyncExportDisabled = errors.New("async cart export is not available")
)

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

type cartExportItem struct {
	BookID    int64           `json:"bookId"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type cartExportDoc struct {
	UserID        string           `json:"userId"`
	Items         []cartExportItem `json:"items"`
	TotalPrice    decimal.Decimal  `json:"totalPrice"`
	ItemCount     int              `json:"itemCount"`
	TotalQuantity int              `json:"totalQuantity"`
}

type CartExporter struct {
	carts  Cart
	writer CartWriter
	events EventPublisher // optional; needed for RequestExport only
}

func NewCartExporter(carts Cart, writer CartWriter, events EventPublisher) *CartExporter {
	return &CartExporter{carts: carts, writer: writer, events: events}
}

var _ CartExport = (*CartExporter)(nil)

func (e *CartExporter) ExportCartForUser(ctx context.Context, userID string) (string, error) {
	cart, err := e.carts.GetCart(ctx, userID)
	if err != nil {
		return "", err
	}
	return e.ExportCart(ctx, cart)
}

// ExportCart writes the cart as pretty JSON to shopping-cart-<user>.json,
// overwriting any previous export, and returns the absolute path.
func (e *CartExporter) ExportCart(ctx context.Context, cart *domain.ShoppingCart) (string, error) {
	l := logging.FromCtx(ctx).With("user", cart.UserID)

	doc, err := json.MarshalIndent(toExportDoc(cart), "", "  ")
	if err != nil {
		l.Error("error serializing shopping cart", "err", err)
		return "", fmt.Errorf("serialize shopping cart: %w", err)
	}

	path, err := e.writer.Write(ctx, ExportFileName(cart.UserID), doc)
	if err != nil {
		l.Error("error writing shopping cart export", "err", err)
		return "", err
	}
	l.Info("exported shopping cart", "path", path)
	return path, nil
}

func (e *CartExporter) RequestExport(ctx context.Context, userID string) error {
	if e.events == nil {
		return ErrAsyncExportDisabled
	}
	return e.events.PublishExportRequested(ctx, ExportCartRequestedMsg{
		UserID:      userID,
		RequestedAt: time.Now().UTC(),
	})
}

func ExportFileName(userID string) string {
	return fmt.Sprintf("shopping-cart-%s.json", unsafeFileChars.ReplaceAllString(userID, "_"))
}

func toExportDoc(c *domain.ShoppingCart) cartExportDoc {
	items := make([]cartExportItem, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, cartExportItem{
			BookID:    it.BookID,
			Title:     it.Title,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			Subtotal:  it.Subtotal(),
		})
	}
	return cartExportDoc{
		UserID:        c.UserID,
		Items:         items,
		TotalPrice:    c.TotalPrice(),
		ItemCount:     c.ItemCount(),
		TotalQuantity: c.TotalQuantity(),
	}
}

package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

type CartItem struct {
	BookID    int64
	Title     string
	UnitPrice decimal.Decimal
	Quantity  int
}

func NewCartItem(bookID int64, title string, unitPrice decimal.Decimal, quantity int) (*CartItem, error) {
	if bookID == 0 {
		return nil, invalid("Book id cannot be null")
	}
	if isBlank(title) {
		return nil, invalid("Title cannot be empty")
	}
	if !unitPrice.IsPositive() {
		return nil, invalid("Unit price must be greater than 0")
	}
	if quantity <= 0 {
		return nil, invalid("Quantity must be greater than 0")
	}
	return &CartItem{
		BookID:    bookID,
		Title:     strings.TrimSpace(title),
		UnitPrice: unitPrice,
		Quantity:  quantity,
	}, nil
}

func (i *CartItem) SetQuantity(quantity int) error {
	if quantity <= 0 {
		return invalid("Quantity must be greater than 0")
	}
	i.Quantity = quantity
	return nil
}

func (i *CartItem) IncreaseQuantity(delta int) error {
	return i.SetQuantity(i.Quantity + delta)
}

func (i CartItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ShoppingCart keeps at most one line per book, in insertion order.
type ShoppingCart struct {
	UserID string
	Items  []CartItem
}

func NewShoppingCart(userID string, items ...CartItem) *ShoppingCart {
	c := &ShoppingCart{UserID: userID, Items: make([]CartItem, 0, len(items))}
	c.Items = append(c.Items, items...)
	return c
}

func (c *ShoppingCart) find(bookID int64) int {
	for i := range c.Items {
		if c.Items[i].BookID == bookID {
			return i
		}
	}
	return -1
}

// AddItem merges quantities when the book is already in the cart.
func (c *ShoppingCart) AddItem(item CartItem) error {
	if i := c.find(item.BookID); i >= 0 {
		return c.Items[i].IncreaseQuantity(item.Quantity)
	}
	c.Items = append(c.Items, item)
	return nil
}

// UpdateItemQuantity drops the line when quantity <= 0. Unknown books are ignored.
func (c *ShoppingCart) UpdateItemQuantity(bookID int64, quantity int) error {
	i := c.find(bookID)
	if i < 0 {
		return nil
	}
	if quantity <= 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
		return nil
	}
	return c.Items[i].SetQuantity(quantity)
}

func (c *ShoppingCart) RemoveItem(bookID int64) {
	kept := c.Items[:0]
	for _, it := range c.Items {
		if it.BookID != bookID {
			kept = append(kept, it)
		}
	}
	c.Items = kept
}

func (c *ShoppingCart) Clear() {
	c.Items = c.Items[:0]
}

func (c *ShoppingCart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}

func (c *ShoppingCart) ItemCount() int { return len(c.Items) }

func (c *ShoppingCart) TotalQuantity() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

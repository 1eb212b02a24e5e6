package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const MinPublicationYear = 1800

// now is swapped in tests to pin the upper bound of the publication year.
var now = time.Now

type Book struct {
	ID              int64
	Title           string
	Author          string
	Category        string
	Price           decimal.Decimal
	PublicationYear int
	Quantity        int
}

// UpdateBook is a full update; nil fields are left untouched.
type UpdateBook struct {
	Title           *string
	Author          *string
	Category        *string
	Price           *decimal.Decimal
	PublicationYear *int
	Quantity        *int
}

// PartialUpdateBook only touches stock-related fields.
type PartialUpdateBook struct {
	Price    *decimal.Decimal
	Quantity *int
}

func NewBook(id int64, title, author, category string, price decimal.Decimal, year, quantity int) (*Book, error) {
	b := &Book{ID: id}
	if err := b.ChangeTitle(title); err != nil {
		return nil, err
	}
	if err := b.ChangeAuthor(author); err != nil {
		return nil, err
	}
	if err := b.ChangeCategory(category); err != nil {
		return nil, err
	}
	if err := b.ChangePrice(price); err != nil {
		return nil, err
	}
	if err := b.ChangePublicationYear(year); err != nil {
		return nil, err
	}
	if err := b.ChangeQuantity(quantity); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Book) Update(u UpdateBook) error {
	if u.Title != nil {
		if err := b.ChangeTitle(*u.Title); err != nil {
			return err
		}
	}
	if u.Author != nil {
		if err := b.ChangeAuthor(*u.Author); err != nil {
			return err
		}
	}
	if u.Category != nil {
		if err := b.ChangeCategory(*u.Category); err != nil {
			return err
		}
	}
	if u.Price != nil {
		if err := b.ChangePrice(*u.Price); err != nil {
			return err
		}
	}
	if u.PublicationYear != nil {
		if err := b.ChangePublicationYear(*u.PublicationYear); err != nil {
			return err
		}
	}
	if u.Quantity != nil {
		if err := b.ChangeQuantity(*u.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (b *Book) PartialUpdate(u PartialUpdateBook) error {
	if u.Price != nil {
		if err := b.ChangePrice(*u.Price); err != nil {
			return err
		}
	}
	if u.Quantity != nil {
		if err := b.ChangeQuantity(*u.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (b *Book) ChangeTitle(title string) error {
	if isBlank(title) {
		return invalid("Title cannot be empty")
	}
	b.Title = strings.TrimSpace(title)
	return nil
}

func (b *Book) ChangeAuthor(author string) error {
	if isBlank(author) {
		return invalid("Author cannot be empty")
	}
	b.Author = strings.TrimSpace(author)
	return nil
}

func (b *Book) ChangeCategory(category string) error {
	if isBlank(category) {
		return invalid("Category cannot be empty")
	}
	b.Category = strings.TrimSpace(category)
	return nil
}

func (b *Book) ChangePrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return invalid("Price must be greater than 0")
	}
	b.Price = price
	return nil
}

func (b *Book) ChangePublicationYear(year int) error {
	if year < MinPublicationYear || year > now().Year() {
		return invalid("Invalid publication year")
	}
	b.PublicationYear = year
	return nil
}

func (b *Book) ChangeQuantity(quantity int) error {
	if quantity < 0 {
		return invalid("Quantity cannot be negative")
	}
	b.Quantity = quantity
	return nil
}

func isBlank(s string) bool { return strings.TrimSpace(s) == "" }

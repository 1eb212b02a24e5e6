package usecase

import (
	"context"
	"errors"

	domain "github.com/aq2208/bookstore-api/internal/entity"
	"github.com/aq2208/bookstore-api/internal/logging"
)

type CartService struct {
	carts CartRepository
	books BookRepository
}

func NewCartService(carts CartRepository, books BookRepository) *CartService {
	return &CartService{carts: carts, books: books}
}

var _ Cart = (*CartService)(nil)

func (s *CartService) AddItem(ctx context.Context, userID string, bookID int64, quantity int) (*domain.ShoppingCart, error) {
	if quantity <= 0 {
		return nil, invalidRequest("Quantity must be greater than zero")
	}
	book, err := s.books.FindByID(ctx, bookID)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, &NotFoundError{ID: bookID}
	}
	if err != nil {
		return nil, s.fail(ctx, "adding item", userID, err)
	}

	cart, err := s.loadOrNew(ctx, userID)
	if err != nil {
		return nil, s.fail(ctx, "adding item", userID, err)
	}
	line, err := domain.NewCartItem(book.ID, book.Title, book.Price, quantity)
	if err != nil {
		return nil, invalidRequest(err.Error())
	}
	if err := cart.AddItem(*line); err != nil {
		return nil, invalidRequest(err.Error())
	}
	return s.save(ctx, cart, "adding item")
}

func (s *CartService) UpdateItemQuantity(ctx context.Context, userID string, bookID int64, quantity int) (*domain.ShoppingCart, error) {
	if quantity < 0 {
		return nil, invalidRequest("Quantity cannot be negative")
	}
	cart, err := s.mustLoad(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}
	if err := cart.UpdateItemQuantity(bookID, quantity); err != nil {
		return nil, invalidRequest(err.Error())
	}
	return s.save(ctx, cart, "updating item")
}

func (s *CartService) RemoveItem(ctx context.Context, userID string, bookID int64) (*domain.ShoppingCart, error) {
	cart, err := s.mustLoad(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}
	cart.RemoveItem(bookID)
	return s.save(ctx, cart, "removing item")
}

// GetCart never fails on a missing cart; it hands back an empty one.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.ShoppingCart, error) {
	cart, err := s.loadOrNew(ctx, userID)
	if err != nil {
		return nil, s.fail(ctx, "loading cart", userID, err)
	}
	return cart, nil
}

func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	cart, err := s.loadOrNew(ctx, userID)
	if err != nil {
		return s.fail(ctx, "clearing cart", userID, err)
	}
	cart.Clear()
	_, err = s.save(ctx, cart, "clearing cart")
	return err
}

func (s *CartService) loadOrNew(ctx context.Context, userID string) (*domain.ShoppingCart, error) {
	cart, err := s.carts.FindByUserID(ctx, userID)
	if errors.Is(err, ErrRecordNotFound) {
		return domain.NewShoppingCart(userID), nil
	}
	return cart, err
}

// mustLoad reports a missing cart as a not-found on the book being touched.
func (s *CartService) mustLoad(ctx context.Context, userID string, bookID int64) (*domain.ShoppingCart, error) {
	cart, err := s.carts.FindByUserID(ctx, userID)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, &NotFoundError{ID: bookID}
	}
	if err != nil {
		return nil, s.fail(ctx, "loading cart", userID, err)
	}
	return cart, nil
}

func (s *CartService) save(ctx context.Context, cart *domain.ShoppingCart, op string) (*domain.ShoppingCart, error) {
	saved, err := s.carts.Save(ctx, cart)
	if err != nil {
		return nil, s.fail(ctx, op, cart.UserID, err)
	}
	return saved, nil
}

func (s *CartService) fail(ctx context.Context, op, userID string, err error) error {
	logging.FromCtx(ctx).Error("cart storage error", "op", op, "user", userID, "err", err)
	return dataAccess(err)
}

package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain "github.com/aq2208/bookstore-api/internal/entity"
	"github.com/aq2208/bookstore-api/internal/usecase"
)

type MySQLBookRepo struct{ db *sql.DB }

func NewMySQLBookRepo(db *sql.DB) *MySQLBookRepo { return &MySQLBookRepo{db: db} }

const bookColumns = `id,title,author,category,price,publication_year,quantity`

func (r *MySQLBookRepo) Save(ctx context.Context, b *domain.Book) (*domain.Book, error) {
	res, err := r.db.ExecContext(ctx, `
INSERT INTO books (title,author,category,price,publication_year,quantity,created_at,updated_at)
VALUES (?,?,?,?,?,?,NOW(),NOW())
`, b.Title, b.Author, b.Category, b.Price, b.PublicationYear, b.Quantity)
	if err != nil {
		return nil, fmt.Errorf("insert book: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert book id: %w", err)
	}
	out := *b
	out.ID = id
	return &out, nil
}

func (r *MySQLBookRepo) FindByID(ctx context.Context, id int64) (*domain.Book, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id=?`, id)
	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, usecase.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *MySQLBookRepo) FindAll(ctx context.Context, page, size int) (usecase.PagedResult[*domain.Book], error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&total); err != nil {
		return usecase.PagedResult[*domain.Book]{}, fmt.Errorf("count books: %w", err)
	}

	offset, ok := pageOffset(page, size, total)
	if !ok {
		return usecase.NewPagedResult([]*domain.Book{}, total, page, size), nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books ORDER BY id LIMIT ? OFFSET ?`, size, offset)
	if err != nil {
		return usecase.PagedResult[*domain.Book]{}, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	content := make([]*domain.Book, 0, size)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return usecase.PagedResult[*domain.Book]{}, err
		}
		content = append(content, b)
	}
	if err := rows.Err(); err != nil {
		return usecase.PagedResult[*domain.Book]{}, err
	}
	return usecase.NewPagedResult(content, total, page, size), nil
}

// Update relies on the caller having loaded the row; MySQL reports 0 affected
// rows for no-op updates, so that is not treated as missing.
func (r *MySQLBookRepo) Update(ctx context.Context, b *domain.Book) (*domain.Book, error) {
	_, err := r.db.ExecContext(ctx, `
UPDATE books
SET title = ?, author = ?, category = ?, price = ?, publication_year = ?, quantity = ?, updated_at = NOW()
WHERE id = ?`,
		b.Title, b.Author, b.Category, b.Price, b.PublicationYear, b.Quantity, b.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}
	out := *b
	return &out, nil
}

func (r *MySQLBookRepo) DeleteByID(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(s rowScanner) (*domain.Book, error) {
	var b domain.Book
	if err := s.Scan(&b.ID, &b.Title, &b.Author, &b.Category, &b.Price, &b.PublicationYear, &b.Quantity); err != nil {
		return nil, err
	}
	return &b, nil
}

var _ usecase.BookRepository = (*MySQLBookRepo)(nil)

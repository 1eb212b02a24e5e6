package http

import (
	"fmt"
	"strings"

	domain "github.com/aq2208/bookstore-api/internal/entity"
	"github.com/aq2208/bookstore-api/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const booksPath = "/api/v1/books"

type link struct {
	Href string `json:"href"`
}

type bookLinks struct {
	Self  link `json:"self"`
	Books link `json:"books"`
}

type bookResource struct {
	ID              int64           `json:"id"`
	Title           string          `json:"title"`
	Author          string          `json:"author"`
	Category        string          `json:"category"`
	Price           decimal.Decimal `json:"price"`
	PublicationYear int             `json:"publicationYear"`
	Quantity        int             `json:"quantity"`
	Links           bookLinks       `json:"_links"`
}

type pageLinks struct {
	Self  link  `json:"self"`
	First link  `json:"first"`
	Prev  *link `json:"prev,omitempty"`
	Next  *link `json:"next,omitempty"`
}

type pageMeta struct {
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Number        int   `json:"number"`
}

type bookPage struct {
	Embedded struct {
		Books []bookResource `json:"books"`
	} `json:"_embedded"`
	Links pageLinks `json:"_links"`
	Page  pageMeta  `json:"page"`
}

// linker builds absolute hrefs. With no configured base URL it uses the request host.
type linker struct {
	baseURL string
}

func (l linker) origin(c *gin.Context) string {
	if l.baseURL != "" {
		return strings.TrimRight(l.baseURL, "/")
	}
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

func (l linker) book(c *gin.Context, id int64) string {
	return fmt.Sprintf("%s%s/%d", l.origin(c), booksPath, id)
}

func (l linker) books(c *gin.Context) string {
	return l.origin(c) + booksPath
}

func (l linker) page(c *gin.Context, page, size int) *link {
	return &link{Href: fmt.Sprintf("%s?page=%d&size=%d", l.books(c), page, size)}
}

func (l linker) toResource(c *gin.Context, b *domain.Book) bookResource {
	return bookResource{
		ID:              b.ID,
		Title:           b.Title,
		Author:          b.Author,
		Category:        b.Category,
		Price:           b.Price,
		PublicationYear: b.PublicationYear,
		Quantity:        b.Quantity,
		Links: bookLinks{
			Self:  link{Href: l.book(c, b.ID)},
			Books: link{Href: l.books(c)},
		},
	}
}

func (l linker) toPage(c *gin.Context, res usecase.PagedResult[*domain.Book]) bookPage {
	var out bookPage
	out.Embedded.Books = make([]bookResource, 0, len(res.Content))
	for _, b := range res.Content {
		out.Embedded.Books = append(out.Embedded.Books, l.toResource(c, b))
	}

	n, size := res.PageNumber, res.PageSize
	out.Links.Self = *l.page(c, n, size)
	out.Links.First = *l.page(c, 0, size)
	if n > 0 {
		out.Links.Prev = l.page(c, n-1, size)
	}
	if n < res.TotalPages-1 {
		out.Links.Next = l.page(c, n+1, size)
	}

	out.Page = pageMeta{
		Size:          size,
		TotalElements: res.TotalElements,
		TotalPages:    res.TotalPages,
		Number:        n,
	}
	return out
}

package http

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/aq2208/bookstore-api/configs"
	"github.com/aq2208/bookstore-api/internal/adapter/export"
	"github.com/aq2208/bookstore-api/internal/adapter/http/middleware"
	"github.com/aq2208/bookstore-api/internal/adapter/repo"
	"github.com/aq2208/bookstore-api/internal/security"
	"github.com/aq2208/bookstore-api/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

type recordingPublisher struct {
	exports []usecase.ExportCartRequestedMsg
}

func (p *recordingPublisher) PublishBookEvent(context.Context, usecase.BookEventMsg) error { return nil }
func (p *recordingPublisher) PublishExportRequested(_ context.Context, m usecase.ExportCartRequestedMsg) error {
	p.exports = append(p.exports, m)
	return nil
}

type fixture struct {
	router    *gin.Engine
	tokens    *security.TokenProvider
	exportDir string
	token     string
}

func newFixture(t *testing.T, events usecase.EventPublisher) *fixture {
	t.Helper()
	var cfg configs.Config
	cfg.Security.JWTSecret = "0123456789abcdef0123456789abcdef"
	cfg.Security.Issuer = "bookstore-api"
	cfg.Security.Audience = "bookstore-clients"
	cfg.Security.TTL = time.Hour

	users, err := security.NewUserStore(nil)
	require.NoError(t, err)
	tokens := security.NewTokenProvider(cfg)

	books := repo.NewMemoryBookRepo()
	bookSvc := usecase.NewBookService(books)
	cartSvc := usecase.NewCartService(repo.NewMemoryCartRepo(), books)
	dir := t.TempDir()
	exporter := usecase.NewCartExporter(cartSvc, export.NewFileCartWriter(dir), events)

	r := NewRouter(Handlers{
		Books: NewBookHandler(bookSvc, ""),
		Cart:  NewCartHandler(cartSvc, exporter),
		Auth:  NewAuthHandler(users, tokens),
		Authn: middleware.NewAuthn(tokens, users),
	})

	f := &fixture{router: r, tokens: tokens, exportDir: dir}
	f.token = f.login(t, "user", "password")
	return f
}

func (f *fixture) do(method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) login(t *testing.T, user, pass string) string {
	t.Helper()
	w := f.do(http.MethodPost, "/api/auth/login", `{"username":"`+user+`","password":"`+pass+`"}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expiresAt"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	assert.True(t, resp.ExpiresAt.After(time.Now()))
	return resp.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m
}

func assertError(t *testing.T, w *httptest.ResponseRecorder, status int, code, msg string) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, code, body["code"])
	assert.Equal(t, msg, body["message"])
	assert.Equal(t, float64(status), body["status"])
	assert.Equal(t, http.StatusText(status), body["error"])
	assert.NotEmpty(t, body["timestamp"])
}

const duneJSON = `{"title":"Dune","author":"Frank Herbert","category":"Sci-Fi","price":19.90,"publicationYear":1965,"quantity":3}`

func TestAuth(t *testing.T) {
	f := newFixture(t, nil)

	t.Run("bad credentials give a bare 401", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/auth/login", `{"username":"user","password":"wrong"}`, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, w.Body.String())
	})

	t.Run("missing field", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/auth/login", `{"username":"user"}`, "")
		assertError(t, w, http.StatusBadRequest, "VALIDATION_ERROR", "password: must not be blank")
	})

	t.Run("logout", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/auth/logout", "", "")
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestAuthnMiddleware(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodGet, "/api/v1/books", "", "")
	assertError(t, w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication is required to access this resource.")
	assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Bearer")

	w = f.do(http.MethodGet, "/api/v1/books", "", "garbage")
	assertError(t, w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired authentication token.")

	ghost, _, err := f.tokens.Generate("ghost", nil)
	require.NoError(t, err)
	w = f.do(http.MethodGet, "/api/v1/books", "", ghost)
	assertError(t, w, http.StatusUnauthorized, "UNAUTHORIZED", "You are not authorized to access this resource.")

	w = f.do(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBooks_CreateAndGet(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodPost, "/api/v1/books", duneJSON, f.token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "http://example.com/api/v1/books/1", w.Header().Get("Location"))

	body := decode(t, w)
	assert.Equal(t, float64(1), body["id"])
	assert.Equal(t, "Dune", body["title"])
	assert.Equal(t, 19.9, body["price"])
	links := body["_links"].(map[string]any)
	assert.Equal(t, "http://example.com/api/v1/books/1", links["self"].(map[string]any)["href"])
	assert.Equal(t, "http://example.com/api/v1/books", links["books"].(map[string]any)["href"])

	w = f.do(http.MethodGet, "/api/v1/books/1", "", f.token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Frank Herbert", decode(t, w)["author"])

	w = f.do(http.MethodGet, "/api/v1/books/abc", "", f.token)
	assertError(t, w, http.StatusBadRequest, "BAD_REQUEST", "ID must be a number.")

	w = f.do(http.MethodGet, "/api/v1/books/99", "", f.token)
	assertError(t, w, http.StatusNotFound, "REQUEST_NOT_FOUND", "Request not found with id 99")
}

func TestBooks_CreateValidation(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodPost, "/api/v1/books", `{"title":"","author":"A","category":"C","price":1,"publicationYear":2000}`, f.token)
	assertError(t, w, http.StatusBadRequest, "VALIDATION_ERROR", "title: must not be blank; quantity: must not be null")

	w = f.do(http.MethodPost, "/api/v1/books", `{"title":"T","author":"A","category":"C","price":0,"publicationYear":2000,"quantity":1}`, f.token)
	assertError(t, w, http.StatusBadRequest, "VALIDATION_ERROR", "price: must be positive")

	w = f.do(http.MethodPost, "/api/v1/books", `{"title":"T","author":"A","category":"C","price":1,"publicationYear":1700,"quantity":1}`, f.token)
	assertError(t, w, http.StatusBadRequest, "BAD_REQUEST", "Invalid publication year")

	w = f.do(http.MethodPost, "/api/v1/books", `{"title":`, f.token)
	assertError(t, w, http.StatusBadRequest, "VALIDATION_ERROR", "Malformed JSON request")
}

func TestBooks_List(t *testing.T) {
	f := newFixture(t, nil)
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/v1/books", duneJSON, f.token).Code)
	}

	w := f.do(http.MethodGet, "/api/v1/books?page=1&size=1", "", f.token)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)

	books := body["_embedded"].(map[string]any)["books"].([]any)
	require.Len(t, books, 1)
	assert.Equal(t, float64(2), books[0].(map[string]any)["id"])

	links := body["_links"].(map[string]any)
	assert.Equal(t, "http://example.com/api/v1/books?page=1&size=1", links["self"].(map[string]any)["href"])
	assert.Equal(t, "http://example.com/api/v1/books?page=0&size=1", links["first"].(map[string]any)["href"])
	assert.Equal(t, "http://example.com/api/v1/books?page=0&size=1", links["prev"].(map[string]any)["href"])
	assert.Equal(t, "http://example.com/api/v1/books?page=2&size=1", links["next"].(map[string]any)["href"])

	page := body["page"].(map[string]any)
	assert.Equal(t, float64(1), page["size"])
	assert.Equal(t, float64(3), page["totalElements"])
	assert.Equal(t, float64(3), page["totalPages"])
	assert.Equal(t, float64(1), page["number"])

	w = f.do(http.MethodGet, "/api/v1/books?page=2&size=1", "", f.token)
	_, hasNext := decode(t, w)["_links"].(map[string]any)["next"]
	assert.False(t, hasNext)

	w = f.do(http.MethodGet, "/api/v1/books?page=92233720368547759&size=100", "", f.token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decode(t, w)
	assert.Empty(t, body["_embedded"].(map[string]any)["books"])
	_, hasNext = body["_links"].(map[string]any)["next"]
	assert.False(t, hasNext)

	w = f.do(http.MethodGet, fmt.Sprintf("/api/v1/books?page=%d&size=1", math.MaxInt), "", f.token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	_, hasNext = decode(t, w)["_links"].(map[string]any)["next"]
	assert.False(t, hasNext)

	w = f.do(http.MethodGet, "/api/v1/books?page=-1", "", f.token)
	assertError(t, w, http.StatusBadRequest, "BAD_REQUEST", "Page index must not be negative.")

	w = f.do(http.MethodGet, "/api/v1/books?size=x", "", f.token)
	assertError(t, w, http.StatusBadRequest, "BAD_REQUEST", "Page and size must be numbers.")
}

func TestBooks_UpdatePatchDelete(t *testing.T) {
	f := newFixture(t, nil)
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/v1/books", duneJSON, f.token).Code)

	w := f.do(http.MethodPut, "/api/v1/books/1",
		`{"title":"Dune Messiah","author":"Frank Herbert","category":"Sci-Fi","price":21,"publicationYear":1969,"quantity":7}`, f.token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Dune Messiah", body["title"])
	assert.Equal(t, float64(1969), body["publicationYear"])

	w = f.do(http.MethodPut, "/api/v1/books/1",
		`{"title":"T","author":"A","category":"C","price":1,"publicationYear":1700,"quantity":1}`, f.token)
	assertError(t, w, http.StatusBadRequest, "BAD_REQUEST", "Invalid publication year")

	w = f.do(http.MethodPatch, "/api/v1/books/1", `{"quantity":0}`, f.token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decode(t, w)
	assert.Equal(t, float64(0), body["quantity"])
	assert.Equal(t, float64(21), body["price"])

	w = f.do(http.MethodPatch, "/api/v1/books/1", `{"quantity":-2}`, f.token)
	assertError(t, w, http.StatusBadRequest, "VALIDATION_ERROR", "quantity: must be zero or positive")

	w = f.do(http.MethodPatch, "/api/v1/books/42", `{"price":3}`, f.token)
	assertError(t, w, http.StatusNotFound, "REQUEST_NOT_FOUND", "Request not found with id 42")

	w = f.do(http.MethodDelete, "/api/v1/books/1", "", f.token)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = f.do(http.MethodGet, "/api/v1/books/1", "", f.token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCart_Flow(t *testing.T) {
	f := newFixture(t, nil)
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/v1/books", duneJSON, f.token).Code)

	w := f.do(http.MethodGet, "/api/v1/cart", "", f.token)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "user", body["userId"])
	assert.Empty(t, body["items"])

	w = f.do(http.MethodPost, "/api/v1/cart/items", `{"bookId":1,"quantity":2}`, f.token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body = decode(t, w)
	assert.Equal(t, 39.8, body["total"])
	item := body["items"].([]any)[0].(map[string]any)
	assert.Equal(t, "Dune", item["title"])
	assert.Equal(t, 39.8, item["subtotal"])

	w = f.do(http.MethodPost, "/api/v1/cart/items", `{"bookId":1,"quantity":0}`, f.token)
	assertError(t, w, http.StatusBadRequest, "VALIDATION_ERROR", "quantity: must be positive")

	w = f.do(http.MethodPost, "/api/v1/cart/items", `{"bookId":5,"quantity":1}`, f.token)
	assertError(t, w, http.StatusNotFound, "REQUEST_NOT_FOUND", "Request not found with id 5")

	w = f.do(http.MethodPut, "/api/v1/cart/items/1", `{"quantity":5}`, f.token)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, float64(5), body["totalQuantity"])
	assert.Equal(t, float64(1), body["itemCount"])

	w = f.do(http.MethodPut, "/api/v1/cart/items/x", `{"quantity":5}`, f.token)
	assertError(t, w, http.StatusBadRequest, "BAD_REQUEST", "ID must be a number.")

	w = f.do(http.MethodDelete, "/api/v1/cart/items/1", "", f.token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["items"])

	w = f.do(http.MethodDelete, "/api/v1/cart", "", f.token)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCart_Export(t *testing.T) {
	pub := &recordingPublisher{}
	f := newFixture(t, pub)
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/v1/books", duneJSON, f.token).Code)
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/v1/cart/items", `{"bookId":1,"quantity":1}`, f.token).Code)

	w := f.do(http.MethodPost, "/api/v1/cart/export", "", f.token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Cart export successful", body["message"])
	path := body["filePath"].(string)
	assert.True(t, strings.HasPrefix(path, f.exportDir))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"userId": "user"`)

	w = f.do(http.MethodPost, "/api/v1/cart/export?async=true", "", f.token)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "Cart export scheduled", decode(t, w)["message"])
	require.Len(t, pub.exports, 1)
	assert.Equal(t, "user", pub.exports[0].UserID)

	w = f.do(http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `bookstore_cart_exports_total{mode="sync",result="ok"}`)
	assert.Contains(t, w.Body.String(), `http_requests_total{method="POST",path="/api/v1/cart/export",status="200"}`)
}

func TestCart_AsyncExportUnavailable(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(http.MethodPost, "/api/v1/cart/export?async=true", "", f.token)
	assertError(t, w, http.StatusServiceUnavailable, "INTERNAL_ERROR", "Async cart export is not available.")
}

func TestRouter_FallbackHandlers(t *testing.T) {
	f := newFixture(t, nil)
	f.router.GET("/boom", func(*gin.Context) { panic("kaboom") })

	w := f.do(http.MethodGet, "/nope", "", "")
	assertError(t, w, http.StatusNotFound, "REQUEST_NOT_FOUND", "Resource not found.")

	w = f.do(http.MethodGet, "/boom", "", "")
	assertError(t, w, http.StatusInternalServerError, "INTERNAL_ERROR", "Unexpected error")

	w = f.do(http.MethodGet, "/api/v1/books", "", f.token)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

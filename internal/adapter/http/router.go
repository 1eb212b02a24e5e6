package http

import (
	"net/http"

	"github.com/aq2208/bookstore-api/internal/adapter/http/apierror"
	"github.com/aq2208/bookstore-api/internal/adapter/http/middleware"
	"github.com/aq2208/bookstore-api/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Books *BookHandler
	Cart  *CartHandler
	Auth  *AuthHandler
	Authn *middleware.Authn
}

func NewRouter(h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Metrics(), middleware.Logging(logging.New("http")))
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logging.From(c).Error("panic recovered", "panic", recovered)
		apierror.Abort(c, http.StatusInternalServerError, apierror.CodeInternal, "Unexpected error")
	}))

	r.NoRoute(func(c *gin.Context) {
		apierror.Abort(c, http.StatusNotFound, apierror.CodeNotFound, "Resource not found.")
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	// Prometheus endpoint (scraped by Prometheus)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := r.Group("/api/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/logout", h.Auth.Logout)
	}

	v1 := r.Group("/api/v1", h.Authn.Require())
	{
		v1.POST("/books", h.Books.CreateBook)
		v1.GET("/books", h.Books.ListBooks)
		v1.GET("/books/:id", h.Books.GetBook)
		v1.PUT("/books/:id", h.Books.UpdateBook)
		v1.PATCH("/books/:id", h.Books.PatchBook)
		v1.DELETE("/books/:id", h.Books.DeleteBook)

		v1.GET("/cart", h.Cart.GetCart)
		v1.DELETE("/cart", h.Cart.ClearCart)
		v1.POST("/cart/items", h.Cart.AddItem)
		v1.PUT("/cart/items/:bookId", h.Cart.UpdateItem)
		v1.DELETE("/cart/items/:bookId", h.Cart.RemoveItem)
		v1.POST("/cart/export", h.Cart.ExportCart)
	}

	return r
}

// Package http wires the gin router: session-authenticated JSON API
// under /api, browser form flows at the root, and cover image serving.
package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/audit"
	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/catalog"
	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/covers"
	"github.com/mrlokans/bookshelf/internal/database"
)

// RouterConfig carries the dependencies for the HTTP router.
type RouterConfig struct {
	Database       *database.Database
	Catalog        *catalog.Service
	AuditService   *audit.Service
	AuthService    *auth.Service
	SessionManager *auth.SessionManager
	AuthConfig     config.Auth
	CSRFSecret     []byte
	SecureCookies  bool
	CoverStore     *covers.Store
	CoverReaper    catalog.CoverReaper
	TemplatesPath  string
	StaticPath     string
	Version        string
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) (*gin.Engine, *auth.AuthController, error) {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.Use(auth.SecurityHeadersMiddleware())

	// CSRF must run before the auth middleware so the token is in the
	// context when login and register pages render
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies))
	}

	authMiddleware := auth.NewMiddleware(cfg.SessionManager)
	router.Use(authMiddleware.Handler())

	if cfg.StaticPath != "" {
		router.Static("/static", cfg.StaticPath)
	}

	// Auth routes: login, register, logout
	authController, err := auth.NewAuthController(cfg.AuthService, cfg.SessionManager, cfg.TemplatesPath, cfg.AuthConfig, cfg.AuditService)
	if err != nil {
		return nil, nil, err
	}
	authController.RegisterRoutes(router)

	health := NewHealthController(cfg.Database, cfg.Version)
	booksController := NewBooksController(cfg.Catalog)
	formsController := NewFormsController(cfg.Catalog, cfg.CoverStore, cfg.CoverReaper, cfg.TemplatesPath)
	profileController := NewProfileController(cfg.Catalog, cfg.AuditService)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// Books API endpoints
	router.GET("/api/books", booksController.ListBooks)
	router.POST("/api/books", booksController.CreateBook)
	router.GET("/api/books/:id", booksController.GetBook)
	router.PATCH("/api/books/:id", booksController.UpdateBook)
	router.DELETE("/api/books/:id", booksController.DeleteBook)

	// Profile
	router.GET("/api/profile", profileController.Profile)
	router.GET("/profile", profileController.Profile)

	// Browser form flows
	formsController.RegisterRoutes(router)

	// Cover images
	if cfg.CoverStore != nil {
		coversController := NewCoversController(cfg.CoverStore)
		router.GET("/covers/:name", coversController.GetCover)
	}

	return router, authController, nil
}

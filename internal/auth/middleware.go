package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys for user data
const (
	ContextKeyUserID   = "auth_user_id"
	ContextKeyUsername = "auth_username"
	ContextKeyToken    = "auth_token"
)

// Middleware resolves the session cookie into the current user.
type Middleware struct {
	sessionManager *SessionManager
	publicPaths    map[string]bool
}

// NewMiddleware creates a new authentication middleware.
func NewMiddleware(sessionManager *SessionManager) *Middleware {
	publicPaths := map[string]bool{
		"/health":      true,
		"/ping":        true,
		"/login":       true,
		"/register":    true,
		"/favicon.ico": true,
	}

	return &Middleware{
		sessionManager: sessionManager,
		publicPaths:    publicPaths,
	}
}

// Handler returns a Gin middleware handler that authenticates requests.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.isPublicPath(c.Request.URL.Path) {
			// Still resolve the session so public pages can greet a
			// logged-in user, but never reject
			if identity := m.resolveSession(c); identity != nil {
				m.setUserContext(c, identity)
			}
			c.Next()
			return
		}

		if identity := m.resolveSession(c); identity != nil {
			m.setUserContext(c, identity)
			c.Next()
			return
		}

		if m.isAPIRequest(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}

		// Web request - redirect to login
		c.Redirect(http.StatusFound, "/login?next="+c.Request.URL.Path)
		c.Abort()
	}
}

// resolveSession maps the session cookie to an identity, if any.
func (m *Middleware) resolveSession(c *gin.Context) *Identity {
	cookie, err := c.Cookie(CookieName)
	if err != nil || cookie == "" {
		return nil
	}

	identity, err := m.sessionManager.Resolve(c.Request.Context(), cookie)
	if err != nil || identity == nil {
		return nil
	}

	c.Set(ContextKeyToken, cookie)
	return identity
}

// setUserContext stores user information in the Gin context.
func (m *Middleware) setUserContext(c *gin.Context, identity *Identity) {
	c.Set(ContextKeyUserID, identity.UserID)
	c.Set(ContextKeyUsername, identity.Username)
}

// isPublicPath checks if a path should be accessible without authentication.
func (m *Middleware) isPublicPath(path string) bool {
	if m.publicPaths[path] {
		return true
	}
	return strings.HasPrefix(path, "/static/")
}

// isAPIRequest determines if this is an API request vs web browser request.
func (m *Middleware) isAPIRequest(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}

	accept := c.GetHeader("Accept")
	return strings.Contains(accept, "application/json")
}

// Helper functions to extract auth data from Gin context

// GetUserID retrieves the authenticated user's ID from the context.
// Returns 0 if not authenticated.
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextKeyUserID); exists {
		if userID, ok := id.(uint); ok {
			return userID
		}
	}
	return 0
}

// GetUsername retrieves the authenticated user's username from the context.
func GetUsername(c *gin.Context) string {
	if name, exists := c.Get(ContextKeyUsername); exists {
		if username, ok := name.(string); ok {
			return username
		}
	}
	return ""
}

// GetToken retrieves the session token the request authenticated with.
func GetToken(c *gin.Context) string {
	if t, exists := c.Get(ContextKeyToken); exists {
		if token, ok := t.(string); ok {
			return token
		}
	}
	return ""
}

// IsAuthenticated returns true if the request carries a valid session.
func IsAuthenticated(c *gin.Context) bool {
	return GetUserID(c) != 0
}

package auth

import (
	"errors"
	"html/template"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/config"
)

// AuditLogger records authentication events without blocking the
// request path.
type AuditLogger interface {
	LogAuth(userID uint, action, description, ip, userAgent string, success bool)
}

// isLocalPath validates that a redirect path is local to prevent open redirect attacks.
func isLocalPath(path string) bool {
	if path == "" {
		return false
	}
	if !strings.HasPrefix(path, "/") {
		return false
	}
	// Reject protocol-relative URLs (//evil.com)
	if strings.HasPrefix(path, "//") {
		return false
	}
	if strings.Contains(path, "://") {
		return false
	}
	if strings.Contains(path, "\\") {
		return false
	}
	return true
}

// sanitizeRedirectPath returns a safe redirect path, defaulting to "/" if invalid.
func sanitizeRedirectPath(path string) string {
	if isLocalPath(path) {
		return path
	}
	return "/"
}

// AuthController handles authentication-related HTTP endpoints.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	templates      *template.Template
	config         config.Auth
	rateLimiter    *RateLimiter
	audit          AuditLogger
}

// NewAuthController creates a new authentication controller.
func NewAuthController(service *Service, sessionManager *SessionManager, templatesPath string, cfg config.Auth, audit AuditLogger) (*AuthController, error) {
	// Parse auth templates
	pattern := filepath.Join(templatesPath, "auth", "*.html")
	tmpl, err := template.ParseGlob(pattern)
	if err != nil {
		// Templates might not exist yet, create controller without them
		tmpl = nil
	}

	rateLimiter := NewRateLimiter(RateLimitConfig{
		MaxAttempts:     cfg.MaxLoginAttempts,
		WindowDuration:  cfg.RateLimitWindow,
		LockoutDuration: cfg.LockoutDuration,
	})

	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		templates:      tmpl,
		config:         cfg,
		rateLimiter:    rateLimiter,
		audit:          audit,
	}, nil
}

// RegisterRoutes registers authentication routes on the router.
func (ac *AuthController) RegisterRoutes(router *gin.Engine) {
	router.GET("/login", ac.LoginPage)
	router.POST("/login", ac.Login)
	router.GET("/register", ac.RegisterPage)
	router.POST("/register", ac.Register)
	router.POST("/logout", ac.Logout)
	router.GET("/logout", ac.Logout) // Support GET for simple logout links
}

// Stop cleans up resources (rate limiter background goroutine).
func (ac *AuthController) Stop() {
	if ac.rateLimiter != nil {
		ac.rateLimiter.Stop()
	}
}

// credentialsForm carries the login and registration inputs. It binds
// from either an HTML form or a JSON body.
type credentialsForm struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
	Next     string `form:"next" json:"-"`
}

// LoginPage renders the login form.
func (ac *AuthController) LoginPage(c *gin.Context) {
	if IsAuthenticated(c) {
		c.Redirect(http.StatusFound, "/")
		return
	}

	next := sanitizeRedirectPath(c.Query("next"))

	ac.renderTemplate(c, "login.html", gin.H{
		"Title":     "Login",
		"Next":      next,
		"CSRFToken": GetCSRFToken(c),
		"Error":     c.Query("error"),
	})
}

// Login handles the login form submission.
func (ac *AuthController) Login(c *gin.Context) {
	var form credentialsForm
	if err := c.ShouldBind(&form); err != nil {
		ac.loginFailure(c, form, "Invalid request")
		return
	}
	next := sanitizeRedirectPath(form.Next)
	clientIP := c.ClientIP()

	// Check rate limiting before attempting authentication
	if ac.rateLimiter != nil {
		allowed, retryAfter := ac.rateLimiter.Allow(clientIP, form.Username)
		if !allowed {
			c.Header("Retry-After", retryAfter.String())
			if wantsJSON(c) {
				c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many login attempts"})
				return
			}
			ac.renderTemplate(c, "login.html", gin.H{
				"Title":      "Login",
				"Next":       next,
				"Username":   form.Username,
				"CSRFToken":  GetCSRFToken(c),
				"Error":      "Too many login attempts. Please try again later.",
				"RetryAfter": retryAfter.String(),
			})
			return
		}
	}

	user, err := ac.service.Verify(form.Username, form.Password)
	if err != nil {
		if ac.rateLimiter != nil {
			ac.rateLimiter.RecordFailure(clientIP, form.Username)
		}
		if ac.audit != nil {
			ac.audit.LogAuth(0, "login", "failed login for "+form.Username, clientIP, c.Request.UserAgent(), false)
		}
		ac.loginFailure(c, form, "Invalid username or password")
		return
	}

	if ac.rateLimiter != nil {
		ac.rateLimiter.RecordSuccess(clientIP, form.Username)
	}

	token, err := ac.sessionManager.Create(c.Request.Context(), user)
	if err != nil {
		ac.loginFailure(c, form, "Failed to create session")
		return
	}

	if ac.audit != nil {
		ac.audit.LogAuth(user.ID, "login", "user logged in", clientIP, c.Request.UserAgent(), true)
	}

	ac.setSessionCookie(c, token)

	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"token": token, "username": user.Username})
		return
	}
	c.Redirect(http.StatusFound, next)
}

// RegisterPage renders the registration form.
func (ac *AuthController) RegisterPage(c *gin.Context) {
	if IsAuthenticated(c) {
		c.Redirect(http.StatusFound, "/")
		return
	}

	ac.renderTemplate(c, "register.html", gin.H{
		"Title":     "Register",
		"CSRFToken": GetCSRFToken(c),
		"Error":     c.Query("error"),
	})
}

// Register handles new account creation and logs the user straight in.
func (ac *AuthController) Register(c *gin.Context) {
	var form credentialsForm
	if err := c.ShouldBind(&form); err != nil {
		ac.registerFailure(c, form, http.StatusBadRequest, "Invalid request")
		return
	}
	clientIP := c.ClientIP()

	user, err := ac.service.Register(form.Username, form.Password)
	if err != nil {
		errorMsg := "Failed to create account"
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, ErrPasswordTooShort):
			errorMsg = "Password must be at least 8 characters"
		case errors.Is(err, ErrPasswordTooLong):
			errorMsg = "Password exceeds maximum length of 72 characters"
		case errors.Is(err, ErrUsernameRequired):
			errorMsg = "Username is required"
		case errors.Is(err, ErrPasswordRequired):
			errorMsg = "Password is required"
		case errors.Is(err, ErrUsernameInvalid):
			errorMsg = "Username must be 3-64 characters, alphanumeric with underscore/hyphen/dot only"
		case errors.Is(err, ErrDuplicateUsername):
			errorMsg = "Username is already taken"
			status = http.StatusConflict
		default:
			status = http.StatusInternalServerError
		}

		if ac.audit != nil {
			ac.audit.LogAuth(0, "register", "failed registration for "+form.Username, clientIP, c.Request.UserAgent(), false)
		}
		ac.registerFailure(c, form, status, errorMsg)
		return
	}

	if ac.audit != nil {
		ac.audit.LogAuth(user.ID, "register", "user registered", clientIP, c.Request.UserAgent(), true)
	}

	token, err := ac.sessionManager.Create(c.Request.Context(), user)
	if err != nil {
		// Account exists, session creation failed; send them to login
		c.Redirect(http.StatusFound, "/login")
		return
	}

	ac.setSessionCookie(c, token)

	if wantsJSON(c) {
		c.JSON(http.StatusCreated, gin.H{"token": token, "username": user.Username})
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// Logout revokes the session and redirects to login. Logging out twice
// is harmless.
func (ac *AuthController) Logout(c *gin.Context) {
	token := GetToken(c)
	if token == "" {
		if cookie, err := c.Cookie(CookieName); err == nil {
			token = cookie
		}
	}
	if token != "" {
		_ = ac.sessionManager.Destroy(c.Request.Context(), token)
	}

	ac.clearSessionCookie(c)

	if ac.audit != nil {
		ac.audit.LogAuth(GetUserID(c), "logout", "user logged out", c.ClientIP(), c.Request.UserAgent(), true)
	}

	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
		return
	}
	c.Redirect(http.StatusFound, "/login")
}

func (ac *AuthController) loginFailure(c *gin.Context, form credentialsForm, message string) {
	if wantsJSON(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": message})
		return
	}
	ac.renderTemplate(c, "login.html", gin.H{
		"Title":     "Login",
		"Next":      sanitizeRedirectPath(form.Next),
		"Username":  form.Username,
		"CSRFToken": GetCSRFToken(c),
		"Error":     message,
	})
}

func (ac *AuthController) registerFailure(c *gin.Context, form credentialsForm, status int, message string) {
	if wantsJSON(c) {
		c.JSON(status, gin.H{"error": message})
		return
	}
	ac.renderTemplate(c, "register.html", gin.H{
		"Title":     "Register",
		"Username":  form.Username,
		"CSRFToken": GetCSRFToken(c),
		"Error":     message,
	})
}

func (ac *AuthController) setSessionCookie(c *gin.Context, token string) {
	cookie := ac.sessionManager.Cookie()
	c.SetSameSite(cookie.SameSite)
	c.SetCookie(cookie.Name, token, int(ac.sessionManager.Lifetime().Seconds()), cookie.Path, cookie.Domain, cookie.Secure, cookie.HttpOnly)
}

func (ac *AuthController) clearSessionCookie(c *gin.Context) {
	cookie := ac.sessionManager.Cookie()
	c.SetSameSite(cookie.SameSite)
	c.SetCookie(cookie.Name, "", -1, cookie.Path, cookie.Domain, cookie.Secure, cookie.HttpOnly)
}

// renderTemplate renders an auth template or falls back to JSON.
func (ac *AuthController) renderTemplate(c *gin.Context, name string, data gin.H) {
	if ac.templates == nil {
		c.JSON(http.StatusOK, data)
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := ac.templates.ExecuteTemplate(c.Writer, name, data); err != nil {
		c.String(http.StatusInternalServerError, "Template error: %v", err)
	}
}

// wantsJSON reports whether the client expects a JSON response.
func wantsJSON(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}
	if strings.Contains(c.GetHeader("Accept"), "application/json") {
		return true
	}
	return strings.Contains(c.ContentType(), "application/json")
}

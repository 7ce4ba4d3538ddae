package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/catalog"
	"github.com/mrlokans/bookshelf/internal/entities"
)

func setupTestCatalog(t *testing.T) (*catalog.Service, *gorm.DB, func()) {
	dbPath := "./test_http_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.User{}, &entities.Book{}, &entities.Ownership{}, &entities.AuditEvent{})
	require.NoError(t, err)

	svc := catalog.NewService(db, nil, nil)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return svc, db, cleanup
}

// newTestRouter wires the books API with every request authenticated as
// the given user.
func newTestRouter(svc *catalog.Service, userID uint) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(auth.ContextKeyUserID, userID)
		c.Next()
	})

	bc := NewBooksController(svc)
	router.GET("/api/books", bc.ListBooks)
	router.POST("/api/books", bc.CreateBook)
	router.GET("/api/books/:id", bc.GetBook)
	router.PATCH("/api/books/:id", bc.UpdateBook)
	router.DELETE("/api/books/:id", bc.DeleteBook)

	return router
}

func createTestUser(t *testing.T, db *gorm.DB, username string) uint {
	t.Helper()
	user := &entities.User{Username: username, PasswordHash: "hash"}
	require.NoError(t, db.Create(user).Error)
	return user.ID
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestBooksAPI_CreateAndGet(t *testing.T) {
	svc, db, cleanup := setupTestCatalog(t)
	defer cleanup()

	alice := createTestUser(t, db, "alice")
	router := newTestRouter(svc, alice)

	w := doJSON(t, router, http.MethodPost, "/api/books", `{"title":"Dune","author":"Frank Herbert","rating":5}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var created entities.Book
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotZero(t, created.ID)
	assert.Equal(t, "Dune", created.Title)

	w = doJSON(t, router, http.MethodGet, "/api/books", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Books []entities.Book `json:"books"`
		Count int             `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, created.ID, list.Books[0].ID)
}

func TestBooksAPI_Create_MissingFields(t *testing.T) {
	svc, db, cleanup := setupTestCatalog(t)
	defer cleanup()

	alice := createTestUser(t, db, "alice")
	router := newTestRouter(svc, alice)

	w := doJSON(t, router, http.MethodPost, "/api/books", `{"title":"Dune"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBooksAPI_ForbiddenForNonOwner(t *testing.T) {
	svc, db, cleanup := setupTestCatalog(t)
	defer cleanup()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	aliceRouter := newTestRouter(svc, alice)
	bobRouter := newTestRouter(svc, bob)

	w := doJSON(t, aliceRouter, http.MethodPost, "/api/books", `{"title":"Dune","author":"Frank Herbert"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created entities.Book
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	id := "/api/books/" + strconv.FormatUint(uint64(created.ID), 10)

	assert.Equal(t, http.StatusForbidden, doJSON(t, bobRouter, http.MethodGet, id, "").Code)
	assert.Equal(t, http.StatusForbidden, doJSON(t, bobRouter, http.MethodPatch, id, `{"title":"Hijacked"}`).Code)
	assert.Equal(t, http.StatusForbidden, doJSON(t, bobRouter, http.MethodDelete, id, "").Code)

	// The book is untouched
	w = doJSON(t, aliceRouter, http.MethodGet, id, "")
	require.Equal(t, http.StatusOK, w.Code)
	var viewed entities.Book
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &viewed))
	assert.Equal(t, "Dune", viewed.Title)
}

func TestBooksAPI_PatchPartial(t *testing.T) {
	svc, db, cleanup := setupTestCatalog(t)
	defer cleanup()

	alice := createTestUser(t, db, "alice")
	router := newTestRouter(svc, alice)

	w := doJSON(t, router, http.MethodPost, "/api/books", `{"title":"Dune","author":"Frank Herbert","genre":"scifi"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created entities.Book
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, router, http.MethodPatch, "/api/books/"+strconv.FormatUint(uint64(created.ID), 10), `{"genre":""}`)
	require.Equal(t, http.StatusOK, w.Code)

	var updated entities.Book
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "", updated.Genre)
	assert.Equal(t, "Dune", updated.Title)
}

func TestBooksAPI_DeleteThenNotFound(t *testing.T) {
	svc, db, cleanup := setupTestCatalog(t)
	defer cleanup()

	alice := createTestUser(t, db, "alice")
	router := newTestRouter(svc, alice)

	w := doJSON(t, router, http.MethodPost, "/api/books", `{"title":"Dune","author":"Frank Herbert"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created entities.Book
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	id := "/api/books/" + strconv.FormatUint(uint64(created.ID), 10)

	assert.Equal(t, http.StatusOK, doJSON(t, router, http.MethodDelete, id, "").Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, router, http.MethodGet, id, "").Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, router, http.MethodDelete, id, "").Code)
}

func TestBooksAPI_InvalidID(t *testing.T) {
	svc, db, cleanup := setupTestCatalog(t)
	defer cleanup()

	alice := createTestUser(t, db, "alice")
	router := newTestRouter(svc, alice)

	assert.Equal(t, http.StatusBadRequest, doJSON(t, router, http.MethodGet, "/api/books/abc", "").Code)
}

func TestBooksAPI_Unauthenticated(t *testing.T) {
	svc, _, cleanup := setupTestCatalog(t)
	defer cleanup()

	router := newTestRouter(svc, 0)

	assert.Equal(t, http.StatusUnauthorized, doJSON(t, router, http.MethodGet, "/api/books", "").Code)
}

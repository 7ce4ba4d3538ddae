package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/catalog"
	"github.com/mrlokans/bookshelf/internal/entities"
)

// BooksController exposes the JSON API over the catalog.
type BooksController struct {
	catalog *catalog.Service
}

// NewBooksController creates a new books API controller.
func NewBooksController(svc *catalog.Service) *BooksController {
	return &BooksController{catalog: svc}
}

// createBookRequest carries the fields for a new book.
type createBookRequest struct {
	Title      string  `json:"title" binding:"required"`
	Author     string  `json:"author" binding:"required"`
	Content    string  `json:"content"`
	Genre      string  `json:"genre"`
	Rating     float64 `json:"rating"`
	CoverImage string  `json:"cover_image"`
}

// ListBooks returns all books owned by the current user, oldest first.
func (bc *BooksController) ListBooks(c *gin.Context) {
	books, err := bc.catalog.ListBooks(GetUserID(c))
	if err != nil {
		respondCatalogError(c, err, "list books")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"books": books,
		"count": len(books),
	})
}

// CreateBook stores a new book owned by the current user.
func (bc *BooksController) CreateBook(c *gin.Context) {
	var req createBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "title and author are required")
		return
	}

	book, err := bc.catalog.CreateBook(GetUserID(c), entities.BookFields{
		Title:      req.Title,
		Author:     req.Author,
		Content:    req.Content,
		Genre:      req.Genre,
		Rating:     req.Rating,
		CoverImage: req.CoverImage,
	})
	if err != nil {
		respondCatalogError(c, err, "create book")
		return
	}

	c.JSON(http.StatusCreated, book)
}

// GetBook returns a single book the current user owns.
func (bc *BooksController) GetBook(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := bc.catalog.GetBook(GetUserID(c), bookID)
	if err != nil {
		respondCatalogError(c, err, "get book")
		return
	}

	c.JSON(http.StatusOK, book)
}

// UpdateBook applies a partial update. Only the fields present in the
// body are replaced; an explicit empty string still replaces.
func (bc *BooksController) UpdateBook(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var patch entities.BookPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	book, err := bc.catalog.UpdateBook(GetUserID(c), bookID, patch)
	if err != nil {
		respondCatalogError(c, err, "update book")
		return
	}

	c.JSON(http.StatusOK, book)
}

// DeleteBook permanently removes a book the current user owns.
func (bc *BooksController) DeleteBook(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := bc.catalog.DeleteBook(GetUserID(c), bookID); err != nil {
		respondCatalogError(c, err, "delete book")
		return
	}

	respondSuccess(c, "book deleted")
}

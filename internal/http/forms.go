package http

import (
	"errors"
	"html/template"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/catalog"
	"github.com/mrlokans/bookshelf/internal/covers"
	"github.com/mrlokans/bookshelf/internal/entities"
)

// FormsController serves the browser-facing pages and form submissions:
// the book list, and the create, edit and delete flows with cover
// uploads.
type FormsController struct {
	catalog   *catalog.Service
	covers    *covers.Store
	reaper    catalog.CoverReaper
	templates *template.Template
}

// NewFormsController creates the browser form controller. Templates are
// optional; without them responses fall back to JSON.
func NewFormsController(svc *catalog.Service, coverStore *covers.Store, reaper catalog.CoverReaper, templatesPath string) *FormsController {
	tmpl, err := template.ParseGlob(filepath.Join(templatesPath, "books", "*.html"))
	if err != nil {
		tmpl = nil
	}

	return &FormsController{
		catalog:   svc,
		covers:    coverStore,
		reaper:    reaper,
		templates: tmpl,
	}
}

// RegisterRoutes registers the form routes on the router.
func (fc *FormsController) RegisterRoutes(router *gin.Engine) {
	router.GET("/", fc.HomePage)
	router.GET("/books/:id", fc.BookPage)
	router.GET("/create-form", fc.CreatePage)
	router.POST("/create-form", fc.Create)
	router.GET("/edit-form/:id", fc.EditPage)
	router.POST("/edit-form/:id", fc.Edit)
	router.POST("/delete/:id", fc.Delete)
}

// HomePage lists the current user's books.
func (fc *FormsController) HomePage(c *gin.Context) {
	books, err := fc.catalog.ListBooks(GetUserID(c))
	if err != nil {
		respondCatalogError(c, err, "home page")
		return
	}

	fc.renderTemplate(c, "index.html", gin.H{
		"Title":     "My Books",
		"Username":  auth.GetUsername(c),
		"Books":     books,
		"CSRFToken": auth.GetCSRFToken(c),
		"Error":     c.Query("error"),
	})
}

// BookPage shows a single book.
func (fc *FormsController) BookPage(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := fc.catalog.GetBook(GetUserID(c), bookID)
	if err != nil {
		respondCatalogError(c, err, "book page")
		return
	}

	fc.renderTemplate(c, "book.html", gin.H{
		"Title":     book.Title,
		"Username":  auth.GetUsername(c),
		"Book":      book,
		"CSRFToken": auth.GetCSRFToken(c),
	})
}

// CreatePage renders the new book form.
func (fc *FormsController) CreatePage(c *gin.Context) {
	fc.renderTemplate(c, "create.html", gin.H{
		"Title":     "Add Book",
		"Username":  auth.GetUsername(c),
		"CSRFToken": auth.GetCSRFToken(c),
		"Error":     c.Query("error"),
	})
}

// Create handles the new book form, including an optional cover upload.
func (fc *FormsController) Create(c *gin.Context) {
	fields := entities.BookFields{
		Title:   c.PostForm("title"),
		Author:  c.PostForm("author"),
		Content: c.PostForm("content"),
		Genre:   c.PostForm("genre"),
		Rating:  parseRating(c.PostForm("rating")),
	}

	if fields.Title == "" || fields.Author == "" {
		c.Redirect(http.StatusFound, "/create-form?error=Title+and+author+are+required")
		return
	}

	if name, err := fc.saveCover(c); err != nil {
		c.Redirect(http.StatusFound, "/create-form?error=Cover+upload+failed")
		return
	} else if name != "" {
		fields.CoverImage = name
	}

	if _, err := fc.catalog.CreateBook(GetUserID(c), fields); err != nil {
		respondCatalogError(c, err, "create book form")
		return
	}

	c.Redirect(http.StatusFound, "/")
}

// EditPage renders the edit form prefilled with the book's fields.
func (fc *FormsController) EditPage(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := fc.catalog.GetBook(GetUserID(c), bookID)
	if err != nil {
		respondCatalogError(c, err, "edit page")
		return
	}

	fc.renderTemplate(c, "edit.html", gin.H{
		"Title":     "Edit " + book.Title,
		"Username":  auth.GetUsername(c),
		"Book":      book,
		"CSRFToken": auth.GetCSRFToken(c),
		"Error":     c.Query("error"),
	})
}

// Edit applies the edit form. A field submitted empty replaces the
// stored value; a field absent from the form leaves it untouched. A new
// cover replaces the old one, which is queued for removal.
func (fc *FormsController) Edit(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	userID := GetUserID(c)

	var patch entities.BookPatch
	if v, present := c.GetPostForm("title"); present {
		patch.Title = &v
	}
	if v, present := c.GetPostForm("author"); present {
		patch.Author = &v
	}
	if v, present := c.GetPostForm("content"); present {
		patch.Content = &v
	}
	if v, present := c.GetPostForm("genre"); present {
		patch.Genre = &v
	}
	if v, present := c.GetPostForm("rating"); present {
		rating := parseRating(v)
		patch.Rating = &rating
	}

	var oldCover string
	if name, err := fc.saveCover(c); err != nil {
		c.Redirect(http.StatusFound, "/edit-form/"+strconv.FormatUint(uint64(bookID), 10)+"?error=Cover+upload+failed")
		return
	} else if name != "" {
		if current, err := fc.catalog.GetBook(userID, bookID); err == nil {
			oldCover = current.CoverImage
		}
		patch.CoverImage = &name
	}

	if _, err := fc.catalog.UpdateBook(userID, bookID, patch); err != nil {
		respondCatalogError(c, err, "edit book form")
		return
	}

	if oldCover != "" && fc.reaper != nil {
		_ = fc.reaper.EnqueueCoverRemoval(oldCover)
	}

	c.Redirect(http.StatusFound, "/")
}

// Delete permanently removes a book.
func (fc *FormsController) Delete(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := fc.catalog.DeleteBook(GetUserID(c), bookID); err != nil {
		respondCatalogError(c, err, "delete book form")
		return
	}

	c.Redirect(http.StatusFound, "/")
}

// saveCover stores the uploaded cover file, if any, and returns its
// stored name. A missing file field is not an error.
func (fc *FormsController) saveCover(c *gin.Context) (string, error) {
	if fc.covers == nil {
		return "", nil
	}

	fileHeader, err := c.FormFile("cover")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", nil
		}
		return "", err
	}
	if fileHeader.Size > covers.MaxUploadSize {
		return "", errors.New("cover too large")
	}

	return fc.storeUpload(fileHeader)
}

func (fc *FormsController) storeUpload(fileHeader *multipart.FileHeader) (string, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	return fc.covers.Save(file, fileHeader.Filename)
}

func parseRating(s string) float64 {
	rating, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return rating
}

// renderTemplate renders a page template or falls back to JSON.
func (fc *FormsController) renderTemplate(c *gin.Context, name string, data gin.H) {
	if fc.templates == nil {
		c.JSON(http.StatusOK, data)
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := fc.templates.ExecuteTemplate(c.Writer, name, data); err != nil {
		c.String(http.StatusInternalServerError, "Template error: %v", err)
	}
}

package catalog

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookshelf/internal/entities"
)

type recordingReaper struct {
	removed []string
}

func (r *recordingReaper) EnqueueCoverRemoval(coverImage string) error {
	r.removed = append(r.removed, coverImage)
	return nil
}

func setupTestService(t *testing.T) (*Service, *gorm.DB, *recordingReaper, func()) {
	dbPath := "./test_catalog_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.User{}, &entities.Book{}, &entities.Ownership{}, &entities.AuditEvent{})
	require.NoError(t, err)

	reaper := &recordingReaper{}
	svc := NewService(db, nil, reaper)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return svc, db, reaper, cleanup
}

func createUser(t *testing.T, db *gorm.DB, username string) uint {
	t.Helper()
	user := &entities.User{Username: username, PasswordHash: "hash"}
	require.NoError(t, db.Create(user).Error)
	return user.ID
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func TestService_CreateBook_OwnerCanView(t *testing.T) {
	svc, db, _, cleanup := setupTestService(t)
	defer cleanup()

	alice := createUser(t, db, "alice")

	created, err := svc.CreateBook(alice, entities.BookFields{
		Title:  "Dune",
		Author: "Frank Herbert",
		Genre:  "scifi",
		Rating: 5,
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	viewed, err := svc.GetBook(alice, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, viewed.ID)
	assert.Equal(t, "Dune", viewed.Title)
	assert.Equal(t, "Frank Herbert", viewed.Author)
	assert.Equal(t, "scifi", viewed.Genre)
	assert.Equal(t, 5.0, viewed.Rating)
}

func TestService_CreateBook_Unauthenticated(t *testing.T) {
	svc, _, _, cleanup := setupTestService(t)
	defer cleanup()

	_, err := svc.CreateBook(0, entities.BookFields{Title: "Dune", Author: "Frank Herbert"})

	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestService_GetBook_NotOwner(t *testing.T) {
	svc, db, _, cleanup := setupTestService(t)
	defer cleanup()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	book, err := svc.CreateBook(alice, entities.BookFields{Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)

	_, err = svc.GetBook(bob, book.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestService_GetBook_Missing(t *testing.T) {
	svc, db, _, cleanup := setupTestService(t)
	defer cleanup()

	alice := createUser(t, db, "alice")

	_, err := svc.GetBook(alice, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_ListBooks_OnlyOwned(t *testing.T) {
	svc, db, _, cleanup := setupTestService(t)
	defer cleanup()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	first, err := svc.CreateBook(alice, entities.BookFields{Title: "First", Author: "A"})
	require.NoError(t, err)
	second, err := svc.CreateBook(alice, entities.BookFields{Title: "Second", Author: "B"})
	require.NoError(t, err)
	_, err = svc.CreateBook(bob, entities.BookFields{Title: "Bob's", Author: "C"})
	require.NoError(t, err)

	books, err := svc.ListBooks(alice)
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, first.ID, books[0].ID)
	assert.Equal(t, second.ID, books[1].ID)
}

func TestService_ListBooks_Empty(t *testing.T) {
	svc, db, _, cleanup := setupTestService(t)
	defer cleanup()

	alice := createUser(t, db, "alice")

	books, err := svc.ListBooks(alice)
	require.NoError(t, err)
	assert.NotNil(t, books)
	assert.Empty(t, books)
}

func TestService_UpdateBook_PartialPatch(t *testing.T) {
	svc, db, _, cleanup := setupTestService(t)
	defer cleanup()

	alice := createUser(t, db, "alice")
	book, err := svc.CreateBook(alice, entities.BookFields{
		Title:  "Dune",
		Author: "Frank Herbert",
		Genre:  "scifi",
		Rating: 4,
	})
	require.NoError(t, err)

	updated, err := svc.UpdateBook(alice, book.ID, entities.BookPatch{
		Rating: floatPtr(5),
	})
	require.NoError(t, err)
	assert.Equal(t, 5.0, updated.Rating)
	assert.Equal(t, "Dune", updated.Title)
	assert.Equal(t, "scifi", updated.Genre)

	// The persisted state matches what was returned
	viewed, err := svc.GetBook(alice, book.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Rating, viewed.Rating)
}

func TestService_UpdateBook_NotOwnerLeavesBookUnchanged(t *testing.T) {
	svc, db, _, cleanup := setupTestService(t)
	defer cleanup()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	book, err := svc.CreateBook(alice, entities.BookFields{Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)

	_, err = svc.UpdateBook(bob, book.ID, entities.BookPatch{Title: strPtr("Hijacked")})
	assert.ErrorIs(t, err, ErrForbidden)

	viewed, err := svc.GetBook(alice, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", viewed.Title)
}

func TestService_UpdateBook_Missing(t *testing.T) {
	svc, db, _, cleanup := setupTestService(t)
	defer cleanup()

	alice := createUser(t, db, "alice")

	_, err := svc.UpdateBook(alice, 999, entities.BookPatch{Title: strPtr("x")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_DeleteBook(t *testing.T) {
	svc, db, _, cleanup := setupTestService(t)
	defer cleanup()

	alice := createUser(t, db, "alice")
	book, err := svc.CreateBook(alice, entities.BookFields{Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteBook(alice, book.ID))

	_, err = svc.GetBook(alice, book.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	books, err := svc.ListBooks(alice)
	require.NoError(t, err)
	assert.Empty(t, books)

	// A second delete reports the book as gone
	err = svc.DeleteBook(alice, book.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_DeleteBook_NotOwnerLeavesBookIntact(t *testing.T) {
	svc, db, _, cleanup := setupTestService(t)
	defer cleanup()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	book, err := svc.CreateBook(alice, entities.BookFields{Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)

	err = svc.DeleteBook(bob, book.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	viewed, err := svc.GetBook(alice, book.ID)
	require.NoError(t, err)
	assert.Equal(t, book.ID, viewed.ID)
}

func TestService_DeleteBook_EnqueuesCoverRemoval(t *testing.T) {
	svc, db, reaper, cleanup := setupTestService(t)
	defer cleanup()

	alice := createUser(t, db, "alice")
	book, err := svc.CreateBook(alice, entities.BookFields{
		Title:      "Dune",
		Author:     "Frank Herbert",
		CoverImage: "1234.jpg",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteBook(alice, book.ID))

	assert.Equal(t, []string{"1234.jpg"}, reaper.removed)
}

func TestService_DeleteBook_NoCoverNoRemoval(t *testing.T) {
	svc, db, reaper, cleanup := setupTestService(t)
	defer cleanup()

	alice := createUser(t, db, "alice")
	book, err := svc.CreateBook(alice, entities.BookFields{Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteBook(alice, book.ID))

	assert.Empty(t, reaper.removed)
}

func TestService_TwoUsersSameTitle(t *testing.T) {
	svc, db, _, cleanup := setupTestService(t)
	defer cleanup()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	aliceBook, err := svc.CreateBook(alice, entities.BookFields{Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)
	bobBook, err := svc.CreateBook(bob, entities.BookFields{Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)

	// Same title, two independent records
	assert.NotEqual(t, aliceBook.ID, bobBook.ID)

	// Alice deletes hers; Bob's copy is untouched
	require.NoError(t, svc.DeleteBook(alice, aliceBook.ID))

	viewed, err := svc.GetBook(bob, bobBook.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", viewed.Title)

	aliceBooks, err := svc.ListBooks(alice)
	require.NoError(t, err)
	assert.Empty(t, aliceBooks)
}

func TestService_CountBooks(t *testing.T) {
	svc, db, _, cleanup := setupTestService(t)
	defer cleanup()

	alice := createUser(t, db, "alice")

	count, err := svc.CountBooks(alice)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = svc.CreateBook(alice, entities.BookFields{Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)

	count, err = svc.CountBooks(alice)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestService_Unauthenticated(t *testing.T) {
	svc, db, _, cleanup := setupTestService(t)
	defer cleanup()

	alice := createUser(t, db, "alice")
	book, err := svc.CreateBook(alice, entities.BookFields{Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)

	_, err = svc.GetBook(0, book.ID)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = svc.ListBooks(0)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = svc.UpdateBook(0, book.ID, entities.BookPatch{Title: strPtr("x")})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	err = svc.DeleteBook(0, book.ID)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

// Package catalog implements the ownership-scoped book catalog. Every
// operation takes the acting user and enforces that users only ever see
// and touch their own books.
package catalog

import (
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/audit"
	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/database/ownership"
	"github.com/mrlokans/bookshelf/internal/entities"
)

// CoverReaper schedules removal of an orphaned cover file after its
// book is deleted. Removal happens out of band; the delete itself never
// waits on the filesystem.
type CoverReaper interface {
	EnqueueCoverRemoval(coverImage string) error
}

// Service is the access-control layer over books and ownership. All
// reads and writes of the catalog go through it.
type Service struct {
	db     *gorm.DB
	audit  *audit.Service
	reaper CoverReaper
}

// NewService creates a catalog service. The audit service and reaper
// are optional; a nil reaper means deleted covers are left on disk.
func NewService(db *gorm.DB, auditSvc *audit.Service, reaper CoverReaper) *Service {
	return &Service{
		db:     db,
		audit:  auditSvc,
		reaper: reaper,
	}
}

// CreateBook stores a new book and makes the acting user its owner.
// The insert and the ownership grant commit together or not at all.
func (s *Service) CreateBook(userID uint, fields entities.BookFields) (*entities.Book, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}

	var book *entities.Book
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		book, err = books.NewRepository(tx).Create(fields)
		if err != nil {
			return err
		}
		return ownership.NewRepository(tx).Grant(userID, book.ID)
	})
	if err != nil {
		return nil, storageFault(err)
	}

	if s.audit != nil {
		s.audit.LogCreate(userID, book.ID, book.Title)
	}

	return book, nil
}

// GetBook returns a book the user owns. A book owned by someone else
// yields ErrForbidden, never the book itself; a missing book yields
// ErrNotFound. Existence is checked first, so ErrNotFound for an absent
// book does not depend on who asks.
func (s *Service) GetBook(userID, bookID uint) (*entities.Book, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}

	book, err := books.NewRepository(s.db).GetByID(bookID)
	if err != nil {
		if errors.Is(err, books.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageFault(err)
	}

	if err := s.requireOwnership(userID, bookID, "book_view"); err != nil {
		return nil, err
	}

	return book, nil
}

// ListBooks returns all books the user owns, oldest first. A user with
// no books gets an empty slice.
func (s *Service) ListBooks(userID uint) ([]entities.Book, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}

	ids, err := ownership.NewRepository(s.db).ListOwned(userID)
	if err != nil {
		return nil, storageFault(err)
	}

	result := make([]entities.Book, 0, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var owned []entities.Book
	if err := s.db.Where("id IN ?", ids).Find(&owned).Error; err != nil {
		return nil, storageFault(err)
	}

	// Keep insertion order; IN gives no ordering guarantee
	byID := make(map[uint]entities.Book, len(owned))
	for _, b := range owned {
		byID[b.ID] = b
	}
	for _, id := range ids {
		b, ok := byID[id]
		if !ok {
			// Ownership row points at a book that no longer exists.
			// Skip it so the listing stays usable and record the
			// inconsistency for operators.
			if s.audit != nil {
				s.audit.LogAnomaly(userID, id, "book_list", "ownership entry references a missing book")
			}
			continue
		}
		result = append(result, b)
	}

	return result, nil
}

// UpdateBook applies a partial update to a book the user owns and
// returns the resulting record. Fields absent from the patch keep
// their stored values; a supplied empty value still replaces.
func (s *Service) UpdateBook(userID, bookID uint, patch entities.BookPatch) (*entities.Book, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}

	repo := books.NewRepository(s.db)

	if _, err := repo.GetByID(bookID); err != nil {
		if errors.Is(err, books.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageFault(err)
	}

	if err := s.requireOwnership(userID, bookID, "book_edit"); err != nil {
		return nil, err
	}

	book, err := repo.Update(bookID, patch)
	if err != nil {
		if errors.Is(err, books.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageFault(err)
	}

	return book, nil
}

// DeleteBook permanently removes a book the user owns. The row delete
// and the ownership revocation commit together; the identifier is never
// reused. Cover cleanup is queued after commit.
func (s *Service) DeleteBook(userID, bookID uint) error {
	if userID == 0 {
		return ErrUnauthenticated
	}

	book, err := books.NewRepository(s.db).GetByID(bookID)
	if err != nil {
		if errors.Is(err, books.ErrNotFound) {
			return ErrNotFound
		}
		return storageFault(err)
	}

	if err := s.requireOwnership(userID, bookID, "book_delete"); err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := books.NewRepository(tx).Delete(bookID); err != nil {
			return err
		}
		return ownership.NewRepository(tx).Revoke(userID, bookID)
	})
	if err != nil {
		if errors.Is(err, books.ErrNotFound) {
			// Lost a race with a concurrent delete
			return ErrNotFound
		}
		return storageFault(err)
	}

	if s.audit != nil {
		s.audit.LogDelete(userID, bookID, book.Title)
	}

	if s.reaper != nil && book.CoverImage != "" {
		if err := s.reaper.EnqueueCoverRemoval(book.CoverImage); err != nil {
			// The book is gone either way; the orphaned file is a
			// cleanup concern, not a failure of the delete
			log.Printf("failed to enqueue cover removal for %q: %v", book.CoverImage, err)
		}
	}

	return nil
}

// CountBooks returns how many books the user owns.
func (s *Service) CountBooks(userID uint) (int, error) {
	if userID == 0 {
		return 0, ErrUnauthenticated
	}

	ids, err := ownership.NewRepository(s.db).ListOwned(userID)
	if err != nil {
		return 0, storageFault(err)
	}
	return len(ids), nil
}

// requireOwnership maps a non-owner access onto ErrForbidden and logs
// the anomaly. The book is known to exist at this point.
func (s *Service) requireOwnership(userID, bookID uint, action string) error {
	owns, err := ownership.NewRepository(s.db).Owns(userID, bookID)
	if err != nil {
		return storageFault(err)
	}
	if !owns {
		if s.audit != nil {
			s.audit.LogAnomaly(userID, bookID, action, "attempted access to a book owned by another user")
		}
		return ErrForbidden
	}
	return nil
}

func storageFault(err error) error {
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}

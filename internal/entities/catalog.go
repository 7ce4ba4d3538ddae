package entities

import "time"

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:100" json:"username"`
	PasswordHash string    `gorm:"size:100" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Book is a catalog entry. Ownership deliberately lives in a separate
// relation rather than a user_id column, so the user row never grows
// with the collection. Books are hard-deleted, hence no soft-delete
// column; the AUTOINCREMENT primary key guarantees identifiers are
// never reused after deletion.
type Book struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Title      string    `gorm:"index;size:512" json:"title"`
	Author     string    `gorm:"index;size:256" json:"author"`
	Content    string    `gorm:"type:text" json:"content,omitempty"`
	Genre      string    `gorm:"size:100" json:"genre,omitempty"`
	Rating     float64   `json:"rating"`
	CoverImage string    `gorm:"size:512" json:"cover_image,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Ownership links a book to the single user allowed to read, edit, or
// delete it. The unique index on book_id enforces at-most-one-owner.
type Ownership struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index" json:"user_id"`
	BookID    uint      `gorm:"uniqueIndex" json:"book_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (User) TableName() string {
	return "users"
}

func (Book) TableName() string {
	return "books"
}

func (Ownership) TableName() string {
	return "ownerships"
}

// BookFields carries the caller-supplied attributes for a new book.
// No field is validated here: the repository stores them verbatim.
type BookFields struct {
	Title      string  `json:"title"`
	Author     string  `json:"author"`
	Content    string  `json:"content"`
	Genre      string  `json:"genre"`
	Rating     float64 `json:"rating"`
	CoverImage string  `json:"cover_image"`
}

// BookPatch carries a partial update. A nil pointer leaves the stored
// value unchanged; a non-nil pointer replaces it, even when it points
// at an empty string or a zero rating.
type BookPatch struct {
	Title      *string  `json:"title"`
	Author     *string  `json:"author"`
	Content    *string  `json:"content"`
	Genre      *string  `json:"genre"`
	Rating     *float64 `json:"rating"`
	CoverImage *string  `json:"cover_image"`
}

// Changes returns the supplied fields as a column/value map.
func (p BookPatch) Changes() map[string]any {
	changes := make(map[string]any)
	if p.Title != nil {
		changes["title"] = *p.Title
	}
	if p.Author != nil {
		changes["author"] = *p.Author
	}
	if p.Content != nil {
		changes["content"] = *p.Content
	}
	if p.Genre != nil {
		changes["genre"] = *p.Genre
	}
	if p.Rating != nil {
		changes["rating"] = *p.Rating
	}
	if p.CoverImage != nil {
		changes["cover_image"] = *p.CoverImage
	}
	return changes
}

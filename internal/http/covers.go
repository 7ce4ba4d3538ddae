package http

import (
	"errors"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/covers"
)

// CoversController serves uploaded cover images.
type CoversController struct {
	store *covers.Store
}

// NewCoversController creates a new covers controller.
func NewCoversController(store *covers.Store) *CoversController {
	return &CoversController{store: store}
}

// GetCover streams a stored cover image by its opaque name.
func (cc *CoversController) GetCover(c *gin.Context) {
	name := c.Param("name")

	path, err := cc.store.Path(name)
	if err != nil {
		if errors.Is(err, covers.ErrInvalidName) {
			respondBadRequest(c, "invalid cover name")
			return
		}
		respondInternalError(c, err, "resolve cover")
		return
	}

	if _, err := os.Stat(path); err != nil {
		respondNotFound(c, "cover")
		return
	}

	c.File(path)
}

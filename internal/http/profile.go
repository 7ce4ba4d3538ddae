package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/audit"
	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/catalog"
)

// ProfileController shows the current user's profile: username, book
// count and recent account activity.
type ProfileController struct {
	catalog *catalog.Service
	audit   *audit.Service
}

// NewProfileController creates a new profile controller.
func NewProfileController(svc *catalog.Service, auditSvc *audit.Service) *ProfileController {
	return &ProfileController{
		catalog: svc,
		audit:   auditSvc,
	}
}

// Profile returns the current user's profile.
func (pc *ProfileController) Profile(c *gin.Context) {
	userID := GetUserID(c)

	count, err := pc.catalog.CountBooks(userID)
	if err != nil {
		respondCatalogError(c, err, "profile")
		return
	}

	resp := gin.H{
		"username":   auth.GetUsername(c),
		"book_count": count,
	}

	if pc.audit != nil {
		events, _, err := pc.audit.GetEvents(userID, 10, 0)
		if err == nil {
			resp["recent_activity"] = events
		}
	}

	c.JSON(http.StatusOK, resp)
}

package handlers

import (
	"net/http"
	"time"

	"tripstars-api/internal/cache"
	"tripstars-api/internal/database"
	"tripstars-api/internal/middleware"
	"tripstars-api/internal/models"
	"tripstars-api/internal/roles"
	"tripstars-api/internal/services"

	"github.com/gin-gonic/gin"
)

// Aggregating the whole team is the one expensive read in the API, so the
// result is cached briefly. Invalidation is time-based only.
var teamOverviewCache = cache.New[string, services.TeamOverview]()

const teamOverviewTTL = 5 * time.Minute

// UserProductivityReport handles GET /api/reports/user-productivity.
// Admins and managers may pass ?user_id= to inspect anyone; everyone else
// always gets their own report regardless of the parameter.
func UserProductivityReport(c *gin.Context) {
	caller, _ := middleware.CurrentUser(c)
	db := database.GetDB()

	target := caller
	if userID := c.Query("user_id"); userID != "" && userID != caller.ID {
		if !roles.IsPrivileged(caller.Role) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to view other users' reports"})
			return
		}
		var u models.User
		if err := db.Where("id = ?", userID).First(&u).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		target = u
	}

	stats, err := services.BuildUserProductivity(db, target, time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build report"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// TeamOverviewReport handles GET /api/reports/team-overview (privileged
// only).
func TeamOverviewReport(c *gin.Context) {
	if overview, ok := teamOverviewCache.Get("team"); ok {
		c.JSON(http.StatusOK, overview)
		return
	}

	overview, err := services.BuildTeamOverview(database.GetDB(), time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build report"})
		return
	}
	teamOverviewCache.Set("team", overview, teamOverviewTTL)

	c.JSON(http.StatusOK, overview)
}

// ResetReportCache drops the cached team overview. Tests use it between
// scenarios.
func ResetReportCache() {
	teamOverviewCache.Delete("team")
}

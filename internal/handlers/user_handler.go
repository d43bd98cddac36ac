package handlers

import (
	"net/http"
	"strings"
	"time"

	"tripstars-api/internal/auth"
	"tripstars-api/internal/database"
	"tripstars-api/internal/middleware"
	"tripstars-api/internal/models"
	"tripstars-api/internal/roles"
	"tripstars-api/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreateUserRequest represents the payload for creating a user (admin only).
type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"full_name" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required"`
}

// UpdateUserRequest carries optional fields; only set fields are applied.
type UpdateUserRequest struct {
	Email    *string `json:"email"`
	FullName *string `json:"full_name"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
	Password *string `json:"password"`
}

// CreateUser handles POST /api/users (admin only).
func CreateUser(c *gin.Context) {
	actor, _ := middleware.CurrentUser(c)

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !roles.IsValid(req.Role) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid role. Must be one of: " + strings.Join(roles.ValidRoles(), ", "),
		})
		return
	}

	db := database.GetDB()
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	var existing models.User
	if err := db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User with this email already exists"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	user := models.User{
		ID:             uuid.NewString(),
		Email:          req.Email,
		FullName:       req.FullName,
		HashedPassword: hash,
		Role:           req.Role,
		IsActive:       true,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	if err := db.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	services.LogAudit(actor, models.AuditUserCreated, "", map[string]any{
		"created_user_email": user.Email,
		"created_user_role":  user.Role,
	})

	c.JSON(http.StatusCreated, user)
}

// ListUsers handles GET /api/users (admin and manager).
func ListUsers(c *gin.Context) {
	var users []models.User
	if err := database.GetDB().Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "count": len(users)})
}

// GetUser handles GET /api/users/:id (admin and manager).
func GetUser(c *gin.Context) {
	var user models.User
	if err := database.GetDB().Where("id = ?", c.Param("id")).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateUser handles PATCH /api/users/:id (admin only). A password reset or
// deactivation revokes the user's refresh tokens. Users are never deleted.
func UpdateUser(c *gin.Context) {
	actor, _ := middleware.CurrentUser(c)

	db := database.GetDB()

	var user models.User
	if err := db.Where("id = ?", c.Param("id")).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]any{}
	changed := map[string]any{}
	revokeTokens := false

	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email != user.Email {
			var existing models.User
			if err := db.Where("email = ? AND id <> ?", email, user.ID).First(&existing).Error; err == nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "User with this email already exists"})
				return
			}
			updates["email"] = email
			changed["email"] = email
		}
	}
	if req.FullName != nil && *req.FullName != user.FullName {
		updates["full_name"] = *req.FullName
		changed["full_name"] = *req.FullName
	}
	if req.Role != nil && *req.Role != user.Role {
		if !roles.IsValid(*req.Role) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid role. Must be one of: " + strings.Join(roles.ValidRoles(), ", "),
			})
			return
		}
		updates["role"] = *req.Role
		changed["role"] = *req.Role
	}
	if req.IsActive != nil && *req.IsActive != user.IsActive {
		updates["is_active"] = *req.IsActive
		changed["is_active"] = *req.IsActive
		if !*req.IsActive {
			revokeTokens = true
		}
	}
	if req.Password != nil {
		if len(*req.Password) < 8 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 8 characters"})
			return
		}
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}
		updates["hashed_password"] = hash
		changed["password_reset"] = true
		revokeTokens = true
	}

	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}
	updates["updated_at"] = time.Now().UTC()

	if err := db.Model(&user).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}

	if revokeTokens {
		// Best-effort: the user update already succeeded.
		_ = revokeUserRefreshTokens(db, user.ID)
	}

	// Drop any cached socket-handshake snapshot so a deactivation or role
	// change takes effect on the next connection attempt, not after the TTL.
	wsUserCache.Delete(user.ID)

	services.LogAudit(actor, models.AuditUserUpdated, "", map[string]any{
		"target_user_email": user.Email,
		"changes":           changed,
	})

	var updated models.User
	if err := db.Where("id = ?", user.ID).First(&updated).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user"})
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteUser handles DELETE /api/users/:id: hard deletion is disabled by
// design; deactivate via PATCH instead.
func DeleteUser(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{
		"error": "User deletion is not allowed. Deactivate the user instead.",
	})
}

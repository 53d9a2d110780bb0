package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/picload/picload/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserFinder is the directory lookup the existence check depends on.
type UserFinder interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// context key under which UserExists stashes the looked-up user
const targetUserKey = "targetUser"

// ValidUserID rejects requests whose :id is not a well-formed ObjectID
// hex string before any store lookup happens.
func ValidUserID() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := primitive.ObjectIDFromHex(c.Param("id")); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}
		c.Next()
	}
}

// UserExists confirms the target user record exists and stashes it for
// later stages. A well-formed but absent ID is "not found", never
// treated as an ownerless resource.
func UserExists(finder UserFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := finder.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "user lookup failed"})
			return
		}
		if u == nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.Set(targetUserKey, u)
		c.Next()
	}
}

// RequireOwner allows the request only when the authenticated caller is
// the target user. The decision keys on the immutable user ID alone.
func RequireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := CallerID(c)
		if caller == "" || caller != c.Param("id") {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "you do not have permission to access this resource"})
			return
		}
		c.Next()
	}
}

// TargetUser returns the user stashed by UserExists, or nil.
func TargetUser(c *gin.Context) *models.User {
	v, ok := c.Get(targetUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/consultant-worklog/internal/constants"
	apierrors "github.com/yukikurage/consultant-worklog/internal/errors"
	"github.com/yukikurage/consultant-worklog/internal/store"
)

// RequireCollection rejects requests for collections the backend does not serve.
// Ownership of individual documents is checked by the document service.
func RequireCollection() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch name := c.Param("collection"); name {
		case store.Requirements, store.Tasks:
			c.Set(constants.ContextKeyCollection, name)
			c.Next()
		default:
			apierrors.NotFound(c, "Unknown collection")
			c.Abort()
		}
	}
}

// GetCollection returns the collection resolved by RequireCollection.
func GetCollection(c *gin.Context) string {
	return c.GetString(constants.ContextKeyCollection)
}

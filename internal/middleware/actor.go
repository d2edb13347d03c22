package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mensah-dev/school-results-api/internal/models"
	appErrors "github.com/mensah-dev/school-results-api/pkg/errors"
	"github.com/mensah-dev/school-results-api/pkg/response"
)

// ContextActorKey is the gin context key storing the acting user.
const ContextActorKey = "currentActor"

// Actor identity headers set by the upstream gateway after it authenticates
// the request.
const (
	HeaderActorID       = "X-Actor-ID"
	HeaderActorRole     = "X-Actor-Role"
	HeaderActorReviewer = "X-Actor-Reviewer"
)

// Actor requires gateway identity headers and stores the resolved actor in
// the request context.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := strings.TrimSpace(c.GetHeader(HeaderActorID))
		if actorID == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing actor identity"))
			c.Abort()
			return
		}
		role := models.UserRole(strings.ToUpper(strings.TrimSpace(c.GetHeader(HeaderActorRole))))
		switch role {
		case models.RoleAdmin, models.RoleTeacher, models.RoleStudent:
		default:
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "unknown actor role"))
			c.Abort()
			return
		}
		reviewer := strings.EqualFold(strings.TrimSpace(c.GetHeader(HeaderActorReviewer)), "true")

		c.Set(ContextActorKey, models.Actor{ID: actorID, Role: role, Reviewer: reviewer})
		c.Next()
	}
}

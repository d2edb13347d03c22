package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/mensah-dev/school-results-api/internal/middleware"
	"github.com/mensah-dev/school-results-api/internal/models"
)

func actorFromContext(c *gin.Context) (models.Actor, bool) {
	value, exists := c.Get(middleware.ContextActorKey)
	if !exists {
		return models.Actor{}, false
	}
	actor, ok := value.(models.Actor)
	if !ok {
		return models.Actor{}, false
	}
	return actor, true
}

package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/palava-labs/school-portal-api/internal/middleware"
	"github.com/palava-labs/school-portal-api/internal/models"
)

func actorFromContext(c *gin.Context) (models.Actor, bool) {
	value, exists := c.Get(middleware.ContextActorKey)
	if !exists {
		return models.Actor{}, false
	}
	actor, ok := value.(models.Actor)
	return actor, ok
}

func sessionIDFromContext(c *gin.Context) string {
	value, exists := c.Get(middleware.ContextSessionKey)
	if !exists {
		return ""
	}
	id, _ := value.(string)
	return id
}

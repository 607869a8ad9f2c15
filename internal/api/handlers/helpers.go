package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agrisense-io/crop-advisor/internal/api/response"
	"github.com/agrisense-io/crop-advisor/internal/models"
)

// currentUser returns the authenticated user ID and role set by the auth
// middleware.
func currentUser(c *gin.Context) (uuid.UUID, string) {
	userID := c.MustGet("user_id").(uuid.UUID)
	role, _ := c.Get("role")
	roleStr, _ := role.(string)
	return userID, roleStr
}

// isAdmin reports whether the request runs with the admin role.
func isAdmin(c *gin.Context) bool {
	_, role := currentUser(c)
	return role == "admin"
}

// uuidParam parses a UUID path parameter, writing a 400 on failure.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "invalid "+name+" format", nil)
		return uuid.Nil, false
	}
	return id, true
}

// writeError maps domain errors onto the response envelope.
func writeError(c *gin.Context, err error) {
	var notFound *models.NotFoundError
	var conflict *models.ConflictError
	var invalidState *models.InvalidStateError
	var validation *models.ValidationError

	switch {
	case errors.As(err, &notFound):
		response.NotFound(c, notFound.Error())
	case errors.As(err, &conflict):
		response.Conflict(c, conflict.Error(), gin.H{
			"blocking_" + conflict.Entity + "_id": conflict.BlockingID,
		})
	case errors.As(err, &invalidState):
		response.UnprocessableState(c, invalidState.Error())
	case errors.As(err, &validation):
		response.BadRequest(c, validation.Error(), gin.H{"field": validation.Field})
	default:
		response.InternalError(c, err.Error())
	}
}

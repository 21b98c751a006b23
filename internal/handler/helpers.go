package handler

import (
	"net/http"

	"procurement/internal/model"
	"procurement/internal/repository"
	"procurement/pkg/apperror"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// currentUser resolves the authenticated user set by the auth middleware.
// Aborts with 401 when the token subject does not resolve to a live account.
func currentUser(c *gin.Context, users repository.UserRepository) (*model.User, bool) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "User ID not found in context"))
		return nil, false
	}
	idStr, ok := userID.(string)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid User ID format"))
		return nil, false
	}
	user, err := users.GetByID(c.Request.Context(), idStr)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "User not found"))
		return nil, false
	}
	return user, true
}

// parseID reads a UUID path parameter, aborting with 400 when malformed.
func parseID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid "+name+" parameter"))
		return uuid.Nil, false
	}
	return id, true
}

// respondError maps domain errors to their HTTP status; anything unclassified
// is a 500.
func respondError(c *gin.Context, err error) {
	if appErr, ok := apperror.As(err); ok {
		c.JSON(appErr.HTTPStatus(), response.Error(appErr.HTTPStatus(), appErr.Message))
		return
	}
	c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
}

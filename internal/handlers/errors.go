package handlers

import (
	"net/http"

	"estate-marketplace/internal/models"

	"github.com/gin-gonic/gin"
)

// writeError maps the domain error taxonomy onto HTTP statuses. Every
// domain error is recoverable by the caller; only unknown errors become 500.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case models.IsNotFound(err):
		status = http.StatusNotFound
	case models.IsValidation(err):
		status = http.StatusBadRequest
	case models.IsConflict(err):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

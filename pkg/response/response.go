package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/teshub/teshub-api/pkg/errors"
)

// Envelope represents the common response contract. Mensaje carries the
// human-readable string the mobile client displays directly; Error adds the
// machine-readable code alongside it.
type Envelope struct {
	Mensaje string           `json:"mensaje,omitempty"`
	Data    interface{}      `json:"data,omitempty"`
	Error   *appErrors.Error `json:"error,omitempty"`
}

// JSON sends a success response with an optional message.
func JSON(c *gin.Context, status int, data interface{}, mensaje string) {
	c.Header("Cache-Control", "no-store")
	c.JSON(status, Envelope{Data: data, Mensaje: mensaje})
}

// OK responds with HTTP 200.
func OK(c *gin.Context, data interface{}) {
	JSON(c, http.StatusOK, data, "")
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}, mensaje string) {
	JSON(c, http.StatusCreated, data, mensaje)
}

// Message responds with HTTP 200 and only a human-readable message.
func Message(c *gin.Context, mensaje string) {
	JSON(c, http.StatusOK, nil, mensaje)
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	c.Header("Cache-Control", "no-store")
	c.JSON(appErr.Status, Envelope{Mensaje: appErr.Message, Error: appErr})
}

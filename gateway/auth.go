package gateway

import (
	"net/http"

	"github.com/example/marketplace/pkg/auth"
	"github.com/gin-gonic/gin"
)

func (g *Gateway) register(c *gin.Context) {
	var creds auth.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body."})
		return
	}

	token, err := g.auth.Register(c.Request.Context(), creds)
	if err != nil {
		g.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token})
}

package gateway

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type addToBucketRequest struct {
	ID     uint `json:"id"`
	Number *int `json:"number"`
}

type updateBucketRequest struct {
	Number *int `json:"number"`
}

func (g *Gateway) viewBucket(c *gin.Context) {
	view, err := g.buckets.View(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		g.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (g *Gateway) addToBucket(c *gin.Context) {
	var req addToBucketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body."})
		return
	}

	number := 1
	if req.Number != nil {
		number = *req.Number
	}

	view, err := g.buckets.Add(c.Request.Context(), currentUser(c).ID, req.ID, number)
	if err != nil {
		g.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (g *Gateway) updateBucketProduct(c *gin.Context) {
	productID, err := productIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID."})
		return
	}

	var req updateBucketRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Number == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid number format."})
		return
	}

	view, err := g.buckets.Update(c.Request.Context(), currentUser(c).ID, productID, *req.Number)
	if err != nil {
		g.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (g *Gateway) removeBucketProduct(c *gin.Context) {
	productID, err := productIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID."})
		return
	}

	if _, err := g.buckets.Remove(c.Request.Context(), currentUser(c).ID, productID); err != nil {
		g.renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func productIDParam(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

package gateway

import (
	"net/http"
	"strconv"

	"github.com/example/marketplace/pkg/marketplace"
	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

func (g *Gateway) listProductsV1(c *gin.Context) {
	q := marketplace.ListQuery{
		Category: c.Query("category"),
		Sort:     c.Query("sort"),
	}

	listings, _, err := g.catalog.ListProducts(c.Request.Context(), g.optionalUserID(c), q)
	if err != nil {
		g.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": listings})
}

func (g *Gateway) listProductsV2(c *gin.Context) {
	page, err := positiveIntQuery(c, "page", 1)
	if err != nil {
		g.renderError(c, err)
		return
	}
	pageSize, err := positiveIntQuery(c, "page_size", defaultPageSize)
	if err != nil {
		g.renderError(c, err)
		return
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	q := marketplace.ListQuery{
		Category: c.Query("category"),
		Sort:     c.Query("sort"),
		Page:     page,
		PageSize: pageSize,
	}

	listings, total, err := g.catalog.ListProducts(c.Request.Context(), g.optionalUserID(c), q)
	if err != nil {
		g.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":     total,
		"page":      page,
		"page_size": pageSize,
		"results":   listings,
	})
}

func positiveIntQuery(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, &marketplace.ValidationError{Message: name + " must be a positive integer"}
	}
	return v, nil
}

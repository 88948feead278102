package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (g *Gateway) createOrder(c *gin.Context) {
	order, err := g.orders.Create(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		g.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (g *Gateway) getOrder(c *gin.Context) {
	order, err := g.orders.Get(c.Request.Context(), currentUser(c).ID, c.Param("id"))
	if err != nil {
		g.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (g *Gateway) listOrders(c *gin.Context) {
	orders, err := g.orders.List(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		g.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"total":  len(orders),
	})
}

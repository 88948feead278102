package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/example/marketplace/pkg/auth"
	"github.com/example/marketplace/pkg/config"
	"github.com/example/marketplace/pkg/marketplace"
	"github.com/example/marketplace/pkg/models"
	"github.com/example/marketplace/pkg/repository"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

const userContextKey = "user"

type Gateway struct {
	config  *config.Config
	logger  *zap.Logger
	router  *gin.Engine
	catalog *marketplace.Catalog
	buckets *marketplace.BucketService
	orders  *marketplace.OrderEngine
	auth    *auth.Service
}

func New(cfg *config.Config, logger *zap.Logger, catalog *marketplace.Catalog, buckets *marketplace.BucketService, orders *marketplace.OrderEngine, authSvc *auth.Service) *Gateway {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(logger))

	g := &Gateway{
		config:  cfg,
		logger:  logger,
		router:  router,
		catalog: catalog,
		buckets: buckets,
		orders:  orders,
		auth:    authSvc,
	}
	g.setupRoutes()
	return g
}

func (g *Gateway) setupRoutes() {
	// Health check
	g.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 routes
	v1 := g.router.Group("/v1")
	{
		mp := v1.Group("/marketplace")
		mp.GET("/products", g.listProductsV1)

		bucket := mp.Group("", g.authMiddleware())
		{
			bucket.GET("/bucket", g.viewBucket)
			bucket.POST("/bucket/add", g.addToBucket)
			bucket.POST("/bucket/:id/update", g.updateBucketProduct)
			bucket.DELETE("/bucket/:id", g.removeBucketProduct)
			bucket.POST("/create-order", g.createOrder)
		}

		v1.POST("/marketplace_auth/registration", g.register)
	}

	// API v2 routes
	v2 := g.router.Group("/v2/marketplace")
	{
		v2.GET("/products", g.listProductsV2)

		authed := v2.Group("", g.authMiddleware())
		{
			authed.GET("/bucket", g.viewBucket)
			authed.POST("/bucket", g.addToBucket)
			authed.PUT("/bucket/:id", g.updateBucketProduct)
			authed.DELETE("/bucket/:id", g.removeBucketProduct)
			authed.POST("/create-order", g.createOrder)
			authed.GET("/orders", g.listOrders)
			authed.GET("/orders/:id", g.getOrder)
		}
	}

	// Swagger
	g.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

func (g *Gateway) Start() error {
	addr := fmt.Sprintf("%s:%d", g.config.Server.Host, g.config.Server.Port)
	g.logger.Info("Gateway starting", zap.String("address", addr))
	return g.router.Run(addr)
}

// Router exposes the handler, mainly for tests and embedding into an
// http.Server with graceful shutdown.
func (g *Gateway) Router() *gin.Engine {
	return g.router
}

// renderError maps the service error taxonomy onto HTTP statuses.
// Anything unclassified is a 500 and gets logged; nothing is swallowed.
func (g *Gateway) renderError(c *gin.Context, err error) {
	var verr *marketplace.ValidationError
	var serr *marketplace.InsufficientStockError

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message})
	case errors.As(err, &serr):
		c.JSON(http.StatusConflict, gin.H{"error": serr.Error()})
	case errors.Is(err, marketplace.ErrEmptyBucket):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Bucket is empty."})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found."})
	case errors.Is(err, auth.ErrEmailTaken):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email already registered."})
	case errors.Is(err, auth.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token."})
	default:
		g.logger.Error("Unexpected handler error",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An unexpected server error occurred."})
	}
}

// authMiddleware requires a valid "Authorization: Token <key>" header.
func (g *Gateway) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := g.authenticate(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required."})
			return
		}
		c.Set(userContextKey, user)
		c.Next()
	}
}

func (g *Gateway) authenticate(c *gin.Context) (*models.User, error) {
	const prefix = "Token "
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, prefix) {
		return nil, auth.ErrInvalidToken
	}
	return g.auth.Authenticate(c.Request.Context(), strings.TrimSpace(header[len(prefix):]))
}

func currentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(userContextKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// optionalUserID resolves the token when one is presented so closed
// sales show up for their allowed users; anonymous browsing stays open.
func (g *Gateway) optionalUserID(c *gin.Context) uint {
	user, err := g.authenticate(c)
	if err != nil {
		return 0
	}
	return user.ID
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

package handlers

import (
	"os"

	"github.com/CristhianMazon/ecommerce-api-main/internal/auth"
	"github.com/CristhianMazon/ecommerce-api-main/internal/categories"
	"github.com/CristhianMazon/ecommerce-api-main/internal/orders"
	"github.com/CristhianMazon/ecommerce-api-main/internal/products"
	"github.com/CristhianMazon/ecommerce-api-main/internal/stores/kafka"
	"github.com/CristhianMazon/ecommerce-api-main/internal/users"
	"github.com/CristhianMazon/ecommerce-api-main/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	u        *users.Conf
	p        *products.Conf
	cat      *categories.Conf
	o        *orders.Conf
	k        *kafka.Conf
	keys     *auth.Keys
	validate *validator.Validate
}

func NewHandler(u *users.Conf, p *products.Conf, cat *categories.Conf, o *orders.Conf,
	k *kafka.Conf, keys *auth.Keys) *Handler {
	return &Handler{
		u:        u,
		p:        p,
		cat:      cat,
		o:        o,
		k:        k,
		keys:     keys,
		validate: validator.New(),
	}
}

func API(u *users.Conf, p *products.Conf, cat *categories.Conf, o *orders.Conf,
	k *kafka.Conf, keys *auth.Keys) *gin.Engine {
	r := gin.New()
	mode := os.Getenv("GIN_MODE")
	if mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	m, err := middleware.NewMid(keys)
	if err != nil {
		panic(err)
	}

	h := NewHandler(u, p, cat, o, k, keys)
	r.Use(middleware.Logger(), gin.Recovery())

	r.GET("/ping", HealthCheck)

	api := r.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", h.Register)
			authGroup.POST("/login", h.Login)
		}

		userGroup := api.Group("/users")
		userGroup.Use(m.Authentication())
		{
			userGroup.GET("/me", h.GetAuthenticatedUser)
			userGroup.PUT("/me", h.UpdateAuthenticatedUser)
			userGroup.DELETE("/me", h.DeleteAuthenticatedUser)
		}

		categoryGroup := api.Group("/categories")
		{
			categoryGroup.GET("", h.ListCategories)
			categoryGroup.Use(m.Authentication())
			categoryGroup.POST("", m.Authorize(h.CreateCategory, auth.RoleAdmin))
			categoryGroup.PUT("/:id", m.Authorize(h.UpdateCategory, auth.RoleAdmin))
			categoryGroup.DELETE("/:id", m.Authorize(h.DeleteCategory, auth.RoleAdmin))
		}

		productGroup := api.Group("/products")
		{
			productGroup.GET("", h.ListProducts)
			productGroup.GET("/:id", h.GetProduct)
			productGroup.Use(m.Authentication())
			productGroup.POST("", m.Authorize(h.CreateProduct, auth.RoleAdmin))
			productGroup.PUT("/:id", m.Authorize(h.UpdateProduct, auth.RoleAdmin))
			productGroup.DELETE("/:id", m.Authorize(h.DeleteProduct, auth.RoleAdmin))
		}

		orderGroup := api.Group("/orders")
		orderGroup.Use(m.Authentication())
		{
			orderGroup.POST("", h.PlaceOrder)
			orderGroup.GET("", h.ListOrders)
			orderGroup.GET("/:id", h.GetOrder)
			orderGroup.DELETE("/:id", h.CancelOrder)
		}
	}

	return r
}

func HealthCheck(c *gin.Context) {
	c.JSON(200, gin.H{
		"message": "pong",
	})
}

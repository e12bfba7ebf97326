package http

import (
	"github.com/gin-gonic/gin"
	"github.com/iyhunko/catalog-admin/internal/http/controller"
	"github.com/iyhunko/catalog-admin/internal/http/middleware"
)

// Controllers groups the handlers mounted by InitRouter.
type Controllers struct {
	General  *controller.Controller
	Auth     *controller.AuthController
	Products *controller.ProductController
	Imports  *controller.ImportController
	Margins  *controller.MarginController
	Admins   *controller.AdminController
}

func InitRouter(server *gin.Engine, mw *middleware.Middleware, ctr Controllers) *gin.Engine {
	// Apply recovery middleware globally to prevent panics from crashing the server
	server.Use(middleware.Recovery(), middleware.CORS(), middleware.Logger())

	server.GET("/healthz", ctr.General.Healthz)
	server.GET("/admin", ctr.General.Index)
	server.NoRoute(ctr.General.NoRoute)

	api := server.Group("/admin/api")
	api.POST("/auth/sign-in", ctr.Auth.SignIn)

	authed := api.Group("", mw.Auth())
	{
		authed.POST("/auth/sign-out", ctr.Auth.SignOut)
		authed.GET("/console", ctr.Auth.Console)
		authed.GET("/categories", ctr.Products.Categories)
	}

	// Product endpoints
	products := authed.Group("/products")
	{
		products.GET("", ctr.Products.ListProducts)
		products.GET("/page", ctr.Products.ListPage)
		products.GET("/low-stock", ctr.Products.LowStock)
		products.GET("/:id", ctr.Products.GetProduct)
		products.POST("", ctr.Products.CreateProduct)
		products.PUT("/:id", ctr.Products.UpdateProduct)
		products.DELETE("/:id", ctr.Products.DeleteProduct)
		products.POST("/import", mw.BatchDeadline(), ctr.Imports.ImportFile)
		products.POST("/import/object", mw.BatchDeadline(), ctr.Imports.ImportObject)
	}

	super := authed.Group("", middleware.RequireSuperAdmin())
	{
		super.GET("/margin-policy", ctr.Margins.GetPolicy)
		super.PUT("/margin-policy", ctr.Margins.SavePolicy)
		super.POST("/selection/toggle/:id", ctr.Margins.ToggleSelection)
		super.POST("/selection/all", ctr.Margins.SelectAll)
		super.DELETE("/selection", ctr.Margins.ClearSelection)
		super.POST("/selection/apply-margin", mw.BatchDeadline(), ctr.Margins.ApplyMargin)
		super.GET("/admins", ctr.Admins.ListAdmins)
		super.POST("/admins", ctr.Admins.CreateAdmin)
	}

	return server
}

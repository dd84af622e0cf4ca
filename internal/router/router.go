// Package router binds HTTP verb+path to handlers and lays down the
// middleware order: the login throttle runs in front of the login handler,
// Protect in front of every authenticated route, RestrictTo after Protect.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/trekhub/tour-api/internal/config"
	"github.com/trekhub/tour-api/internal/handler"
	"github.com/trekhub/tour-api/internal/middleware"
	"github.com/trekhub/tour-api/internal/model"
	"github.com/trekhub/tour-api/internal/ratelimit"
	"github.com/trekhub/tour-api/internal/repository"
)

// Deps is everything route registration needs.
type Deps struct {
	Cfg          config.Config
	Users        *repository.UserRepo
	Auth         *handler.AuthHandler
	UserHandler  *handler.UserHandler
	Tours        *handler.TourHandler
	Reviews      *handler.ReviewHandler
	LoginLimiter ratelimit.Limiter
}

// Register wires all application routes onto the Echo instance.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)

	protect := middleware.Protect(d.Cfg.JWTSecret, d.Users)

	// ----- users -----
	users := e.Group("/api/v1/users")
	users.POST("/signup", d.Auth.Signup)
	users.POST("/login", d.Auth.Login, middleware.LoginThrottle(d.LoginLimiter))
	users.POST("/forgotPassword", d.Auth.ForgotPassword)
	users.PATCH("/resetPassword/:token", d.Auth.ResetPassword)

	users.PATCH("/updateMyPassword", d.Auth.UpdatePassword, protect)
	users.GET("/me", d.UserHandler.Me, protect)
	users.PATCH("/updateMe", d.UserHandler.UpdateMe, protect)
	users.DELETE("/deleteMe", d.UserHandler.DeleteMe, protect)

	// Admin user management.
	admin := users.Group("", protect, middleware.RestrictTo(model.RoleAdmin))
	admin.GET("", d.UserHandler.List)
	admin.GET("/:id", d.UserHandler.Get)
	admin.PATCH("/:id", d.UserHandler.Update)
	admin.DELETE("/:id", d.UserHandler.Delete)

	// ----- tours -----
	tours := e.Group("/api/v1/tours")
	tours.GET("", d.Tours.List)
	tours.GET("/top-5-cheap", d.Tours.TopCheap)
	tours.GET("/stats", d.Tours.Stats)
	tours.GET("/:id", d.Tours.Get)

	manage := middleware.RestrictTo(model.RoleAdmin, model.RoleLeadGuide)
	tours.POST("", d.Tours.Create, protect, manage)
	tours.PATCH("/:id", d.Tours.Update, protect, manage)
	tours.DELETE("/:id", d.Tours.Delete, protect, manage)

	// Reviews nested under a tour.
	tours.GET("/:id/reviews", d.Reviews.ListForTour)
	tours.POST("/:id/reviews", d.Reviews.Create, protect, middleware.RestrictTo(model.RoleUser))

	// ----- reviews -----
	reviews := e.Group("/api/v1/reviews")
	reviews.GET("", d.Reviews.List)
	reviews.DELETE("/:id", d.Reviews.Delete, protect)
}

package handlers

import (
	"encoding/json"
	"html/template"
	"net/http"
	"strings"

	"github.com/ian-seymour/gamma/internal/observability"
	"github.com/ian-seymour/gamma/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

const sessionName = "gamma_session"

func (h *Handler) SetupRouter(rateLimiter *services.IPRateLimiter, templatePath string, staticPath string) *gin.Engine {
	r := gin.Default()

	r.SetFuncMap(template.FuncMap{
		"json": func(v interface{}) template.JS {
			a, _ := json.Marshal(v)
			return template.JS(a)
		},
	})

	if templatePath != "" {
		r.LoadHTMLGlob(templatePath)
	}
	if staticPath != "" {
		r.Static("/static", staticPath)
	}

	// Middleware
	r.Use(observability.RequestMetrics())
	if rateLimiter != nil {
		r.Use(h.RateLimitMiddleware(rateLimiter))
	}

	store := cookie.NewStore([]byte(h.cfg.SecretKey))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   h.cfg.AppEnv == "production",
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	// Routes
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	r.GET("/metrics", gin.WrapH(observability.Handler()))

	// Public Routes
	auth := r.Group("/auth")
	{
		guest := auth.Group("/")
		guest.Use(h.RedirectIfAuthenticated())
		guest.GET("/login", h.ShowLogin)
		guest.POST("/login", h.HandleLoginForm)
		guest.GET("/register", h.ShowRegister)
		guest.POST("/register", h.HandleRegisterForm)
		guest.GET("/reset-password", h.ShowResetRequest)
		guest.POST("/reset-password", h.HandleResetRequest)
		guest.GET("/reset-password/:token", h.ShowResetConfirm)
		guest.POST("/reset-password/:token", h.HandleResetConfirm)

		auth.POST("/logout", h.Logout)
	}
	r.POST("/api/register", h.RegisterUser)
	r.POST("/api/login", h.LoginUser)

	// Protected Routes
	authorized := r.Group("/")
	authorized.Use(h.AuthRequired())
	{
		authorized.GET("/", h.ShowDashboard)
		authorized.POST("/search", h.SearchLocation)
		authorized.POST("/favorites/add", h.AddFavorite)
		authorized.POST("/favorites/:id/remove", h.RemoveFavorite)
		authorized.GET("/radar/:lat/:lon", h.GetRadar)
		authorized.GET("/api/weather/:lat/:lon", h.GetWeather)
		authorized.GET("/api/air-quality/:lat/:lon", h.GetAirQuality)
		authorized.GET("/api/favorites", h.ListFavorites)
		authorized.DELETE("/api/account", h.DeleteAccount)
	}

	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}
		c.HTML(http.StatusNotFound, "404.html", gin.H{"Title": "Not Found"})
	})

	return r
}

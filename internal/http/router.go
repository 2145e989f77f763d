package http

import (
	"github.com/geocoder89/taskdeck/internal/auth"
	"github.com/geocoder89/taskdeck/internal/cache"
	"github.com/geocoder89/taskdeck/internal/config"
	"github.com/geocoder89/taskdeck/internal/http/handlers"
	"github.com/geocoder89/taskdeck/internal/http/middlewares"
	"github.com/geocoder89/taskdeck/internal/observability"
	"github.com/geocoder89/taskdeck/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type UserRepo interface {
	handlers.UserStore
	handlers.ExternalUserStore
}

// Deps is everything the router wires into handlers. Cache, Gatherer and
// Prom may be nil.
type Deps struct {
	Config   config.Config
	Users    UserRepo
	Tasks    handlers.TaskStore
	Cache    cache.Store
	Blob     storage.Blob
	GitHub   handlers.IdentityResolver
	JWT      *auth.Manager
	Prom     *observability.Prom
	Gatherer prometheus.Gatherer
	Checks   []handlers.Pinger
}

func NewRouter(d Deps) *gin.Engine {
	if !d.Config.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("taskdeck-api"))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware([]string{d.Config.FrontendURL}))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}

	// health
	h := handlers.NewHealthHandler(d.Checks...)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	authMW := middlewares.NewAuthMiddleware(d.JWT)
	limiter := middlewares.NewRateLimiter(d.Config.AuthRateLimit, d.Config.AuthRateWindow)

	// wire up handlers
	authHandler := handlers.NewAuthHandler(d.Users, d.JWT, d.Prom)
	githubHandler := handlers.NewGitHubAuthHandler(d.GitHub, d.Users, d.JWT, d.Config, d.Prom)

	tasksHandler := handlers.NewTasksHandler(d.Tasks)
	if d.Cache != nil {
		tasksHandler = handlers.NewTasksHandlerWithCache(d.Tasks, d.Cache)
	}
	filesHandler := handlers.NewFilesHandler(d.Blob, d.Prom)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	{
		creds := authGroup.Group("",
			limiter.RateLimiterMiddleware(middlewares.KeyByIPAndRoute),
			middlewares.MaxBodyBytes(1<<20),
			middlewares.RequireJSON(),
		)
		creds.POST("/signup", authHandler.SignUp)
		creds.POST("/login", authHandler.Login)

		authGroup.GET("/me", authMW.RequireAuth(), authHandler.Me)

		authGroup.GET("/github/login", githubHandler.Login)
		authGroup.GET("/github/callback", limiter.RateLimiterMiddleware(middlewares.KeyByIPAndRoute), githubHandler.Callback)
	}

	tasks := api.Group("/tasks", authMW.RequireAuth(), middlewares.MaxBodyBytes(1<<20), middlewares.RequireJSON())
	{
		tasks.GET("", tasksHandler.ListTasks)
		tasks.POST("", tasksHandler.CreateTask)
		tasks.GET("/:id", tasksHandler.GetTaskByID)
		tasks.PUT("/:id", tasksHandler.UpdateTask)
		tasks.PATCH("/:id", tasksHandler.PatchTask)
		tasks.DELETE("/:id", tasksHandler.DeleteTask)
	}

	files := api.Group("/files", authMW.RequireAuth(), middlewares.MaxBodyBytes(handlers.MaxUploadBytes))
	{
		files.POST("", filesHandler.Upload)
		files.GET("", filesHandler.List)
		files.POST("/parse", filesHandler.Parse)
		files.GET("/:path/text", filesHandler.StoredText)
	}

	return r
}

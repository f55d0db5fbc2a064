package api

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nekogravitycat/machine-booking-backend/internal/auth"
	"github.com/nekogravitycat/machine-booking-backend/internal/reservation"
	resvHttp "github.com/nekogravitycat/machine-booking-backend/internal/reservation/http"
	"github.com/nekogravitycat/machine-booking-backend/internal/resource"
	resHttp "github.com/nekogravitycat/machine-booking-backend/internal/resource/http"
	"github.com/nekogravitycat/machine-booking-backend/internal/usage"
	usageHttp "github.com/nekogravitycat/machine-booking-backend/internal/usage/http"
	"github.com/nekogravitycat/machine-booking-backend/internal/user"
	userHttp "github.com/nekogravitycat/machine-booking-backend/internal/user/http"
)

// Config holds the services the router exposes.
type Config struct {
	IsProduction bool
	ProdOrigins  string

	UserService        user.Service
	ResService         resource.Service
	ReservationService reservation.Service
	UsageService       usage.Service
	JWTManager         *auth.JWTManager

	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler
	Logger         *zap.Logger
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (CORS, Logger, Auth) and registering routes for various modules.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()

	// Global Middleware:
	// - Logger: Logs request information to the console.
	// - Recovery: Captures panics to prevent server crashes and returns a 500 error.
	// - ErrorLogger: Reports errors handlers attached with c.Error.
	r.Use(gin.Logger(), gin.Recovery(), ErrorLogger(logger))

	r.Use(cors.New(corsConfig(cfg.IsProduction, cfg.ProdOrigins)))

	// authMiddleware: Validates if the request contains a valid JWT.
	authMiddleware := auth.AuthRequired(cfg.JWTManager)
	// identity: Resolves the operator flag handed to the scheduler.
	identity := auth.LoadIdentity(cfg.UserService)
	// operatorMiddleware: Rejects callers without the operator flag.
	operatorMiddleware := auth.RequireOperator()

	// Initialize HTTP Handlers for each module (injecting Service dependencies).
	userHandler := userHttp.NewHandler(cfg.UserService, cfg.JWTManager)
	resHandler := resHttp.NewHandler(cfg.ResService)
	resvHandler := resvHttp.NewHandler(cfg.ReservationService)
	usageHandler := usageHttp.NewHandler(cfg.UsageService)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	// Register API routes under /v1
	v1 := r.Group("/v1")
	{
		userHttp.RegisterRoutes(v1, userHandler, authMiddleware)
		resHttp.RegisterRoutes(v1, resHandler, authMiddleware)
		resvHttp.RegisterRoutes(v1, resvHandler, authMiddleware, identity)
		usageHttp.RegisterRoutes(v1, usageHandler, authMiddleware, identity, operatorMiddleware)
	}

	return r
}

func corsConfig(isProduction bool, prodOrigins string) cors.Config {
	config := cors.DefaultConfig()

	var origins []string
	for _, o := range strings.Split(prodOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if !isProduction {
		origins = append(origins, "http://localhost:8081") // Swagger
	}
	if len(origins) == 0 {
		// cors.New panics on an empty origin list.
		origins = []string{"http://localhost"}
	}

	config.AllowOrigins = origins
	config.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	return config
}

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/nekogravitycat/machine-booking-backend/internal/api"
	"github.com/nekogravitycat/machine-booking-backend/internal/auth"
	"github.com/nekogravitycat/machine-booking-backend/internal/config"
	"github.com/nekogravitycat/machine-booking-backend/internal/metrics"
	"github.com/nekogravitycat/machine-booking-backend/internal/reservation"
	"github.com/nekogravitycat/machine-booking-backend/internal/resource"
	"github.com/nekogravitycat/machine-booking-backend/internal/usage"
	"github.com/nekogravitycat/machine-booking-backend/internal/user"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	StoreDriver  string
	DBPool       *pgxpool.Pool // required for config.StoreDriverPostgres
	JWTSecret    string
	JWTTTL       time.Duration
	BcryptCost   int
	Schedule     config.Schedule
	Logger       *zap.Logger

	// Now overrides the scheduler clock. Tests only.
	Now func() time.Time
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router             *gin.Engine
	JWTManager         *auth.JWTManager
	UserService        user.Service
	ResService         resource.Service
	ReservationService reservation.Service
	UsageService       usage.Service
	Metrics            *metrics.Recorder

	// Resources is set for the memory driver so callers can seed machines.
	Resources *resource.MemoryRepository
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) (*Container, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// Init Components
	passwordHasher := auth.NewBcryptPasswordHasher(cfg.BcryptCost)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	recorder := metrics.NewRecorder()

	var (
		userRepo        user.Repository
		resRepo         resource.Repository
		reservationRepo reservation.Repository
		memResources    *resource.MemoryRepository
	)
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		if cfg.DBPool == nil {
			return nil, fmt.Errorf("store driver %q requires a database pool", cfg.StoreDriver)
		}
		userRepo = user.NewPgxRepository(cfg.DBPool)
		resRepo = resource.NewPgxRepository(cfg.DBPool)
		reservationRepo = reservation.NewPgxRepository(cfg.DBPool)
	case config.StoreDriverMemory:
		memUsers := user.NewMemoryRepository()
		memResources = resource.NewMemoryRepository()
		userRepo = memUsers
		resRepo = memResources
		reservationRepo = reservation.NewMemoryRepository(memoryJoiner(memResources, memUsers))
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	// User Module
	userService := user.NewService(userRepo, passwordHasher, logger)

	// Resource Module
	resService := resource.NewService(resRepo)

	// Reservation Module
	reservationService := reservation.NewService(reservationRepo, resService, reservation.Options{
		Policy:     schedulePolicy(cfg.Schedule),
		CancelMode: reservation.CancelMode(cfg.Schedule.CancelMode),
		Now:        cfg.Now,
		Logger:     logger,
		Observer:   recorder,
	})

	// Usage Module
	usageService := usage.NewService(reservationService, logger)

	// Router
	router := api.NewRouter(api.Config{
		IsProduction:       cfg.IsProduction,
		ProdOrigins:        cfg.ProdOrigins,
		UserService:        userService,
		ResService:         resService,
		ReservationService: reservationService,
		UsageService:       usageService,
		JWTManager:         jwtManager,
		MetricsHandler:     recorder.Handler(),
		Logger:             logger,
	})

	return &Container{
		Router:             router,
		JWTManager:         jwtManager,
		UserService:        userService,
		ResService:         resService,
		ReservationService: reservationService,
		UsageService:       usageService,
		Metrics:            recorder,
		Resources:          memResources,
	}, nil
}

// schedulePolicy converts the configured schedule. An empty schedule yields
// the zero Policy, which the scheduler replaces with its default.
func schedulePolicy(s config.Schedule) reservation.Policy {
	return reservation.Policy{
		Location:         s.Location,
		Opening:          s.OpeningTime,
		Closing:          s.ClosingTime,
		AllowedDurations: s.AllowedDurations,
	}
}

// memoryJoiner fills reservation display names from the in-memory stores,
// mirroring the joins the Postgres repository does in SQL.
func memoryJoiner(resources resource.Repository, users user.Repository) reservation.Joiner {
	return func(ctx context.Context, r *reservation.Reservation) {
		if res, err := resources.GetByID(ctx, r.ResourceID); err == nil {
			r.ResourceName = res.Name
		}
		if u, err := users.GetByID(ctx, r.RequesterID); err == nil {
			r.RequesterName = u.Name()
		}
	}
}

// DemoResources is the catalog seeded for local runs on the memory driver.
func DemoResources() []*resource.Resource {
	return []*resource.Resource{
		{Name: "Machine 1", Model: "Laser cutter", Status: resource.StatusAvailable, DisplayOrder: 1},
		{Name: "Machine 2", Model: "CNC router", Status: resource.StatusAvailable, DisplayOrder: 2},
		{Name: "Machine 3", Model: "3D printer", Status: resource.StatusMaintenance, DisplayOrder: 3},
	}
}

package router

import (
	"context"
	"errors"
	"time"

	"restopos/internal/config"
	"restopos/internal/handler"
	"restopos/internal/middleware"
	"restopos/internal/repository"
	"restopos/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the process-level collaborators. Only DB is required.
type Deps struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Guard    service.Guard
	Notifier service.CloseNotifier
	// Now overrides the clock (tests).
	Now func() time.Time
}

// Services is the engine, shared by the HTTP layer and the summary worker.
type Services struct {
	Shifts         service.ShiftService
	Movements      service.MovementService
	Transfers      service.TransferService
	Reconciliation service.ReconciliationService
	Location       *time.Location
}

// NewServices wires repositories into services.
// Dependency graph: Service ← Repository ← DB
func NewServices(cfg *config.Config, deps Deps) (*Services, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	opts := service.Options{
		Location:     loc,
		Now:          deps.Now,
		Guard:        deps.Guard,
		Notifier:     deps.Notifier,
		RefreshAfter: cfg.CashStatusRefresh(),
	}

	// ── Repositories ─────────────────────────────────────────────────────────
	registerRepo := repository.NewRegisterRepository(deps.DB)
	shiftRepo := repository.NewShiftRepository(deps.DB)
	movementRepo := repository.NewMovementRepository(deps.DB)
	discrepancyRepo := repository.NewDiscrepancyRepository(deps.DB)

	// ── Services ─────────────────────────────────────────────────────────────
	return &Services{
		Shifts:         service.NewShiftService(registerRepo, shiftRepo, movementRepo, discrepancyRepo, opts),
		Movements:      service.NewMovementService(shiftRepo, movementRepo, opts),
		Transfers:      service.NewTransferService(registerRepo, shiftRepo, movementRepo, opts),
		Reconciliation: service.NewReconciliationService(discrepancyRepo, opts),
		Location:       loc,
	}, nil
}

// New returns a configured Gin engine serving svcs.
func New(cfg *config.Config, deps Deps, svcs *Services) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Handlers ─────────────────────────────────────────────────────────────
	shiftsH := handler.NewShiftHandler(svcs.Shifts, svcs.Location)
	movementsH := handler.NewMovementHandler(svcs.Movements, svcs.Location)
	transfersH := handler.NewTransferHandler(svcs.Transfers, svcs.Location)
	reportsH := handler.NewReportHandler(svcs.Reconciliation)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(deps.DB, deps.Redis))

	anyRole := middleware.RequireRole(middleware.RoleCajero, middleware.RoleSupervisor, middleware.RoleAdministrador)
	managers := middleware.RequireRole(middleware.RoleSupervisor, middleware.RoleAdministrador)
	ownShift := middleware.RequireOwnedBranch("id", shiftBranch(repository.NewShiftRepository(deps.DB)))
	ownRegister := middleware.RequireOwnedBranch("register_id", registerBranch(repository.NewRegisterRepository(deps.DB)))

	// Protected routes
	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		shifts := v1.Group("/shifts", anyRole)
		{
			shifts.POST("", shiftsH.Open)

			shift := shifts.Group("/:id", ownShift)
			shift.GET("", shiftsH.Get)
			shift.POST("/close", shiftsH.Close)
			shift.GET("/summary.pdf", shiftsH.SummaryPDF)
			shift.POST("/movements", movementsH.Record)
			shift.GET("/movements", movementsH.List)
		}

		registers := v1.Group("/registers/:register_id", anyRole, ownRegister)
		{
			registers.GET("/open-shift", shiftsH.OpenShift)
			registers.GET("/shifts", shiftsH.List)
		}

		// Moving cash between registers is a supervisor task
		v1.POST("/transfers", managers, transfersH.Create)

		v1.GET("/cashiers/:user_id/statistics", anyRole, reportsH.Statistics)

		branches := v1.Group("/branches/:branch_id", middleware.RequireBranch("branch_id"))
		{
			branches.GET("/cash-status", anyRole, shiftsH.CashStatus)
			branches.GET("/discrepancies", managers, reportsH.Discrepancies)
			branches.GET("/discrepancies/report", managers, reportsH.Report)
		}
	}

	// Swagger UI, only outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}

func shiftBranch(shifts repository.ShiftRepository) middleware.BranchLookup {
	return func(ctx context.Context, id uuid.UUID) (uuid.UUID, bool, error) {
		s, err := shifts.FindByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return uuid.Nil, false, nil
		}
		if err != nil {
			return uuid.Nil, false, err
		}
		return s.BranchID, true, nil
	}
}

func registerBranch(registers repository.RegisterRepository) middleware.BranchLookup {
	return func(ctx context.Context, id uuid.UUID) (uuid.UUID, bool, error) {
		r, err := registers.FindByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return uuid.Nil, false, nil
		}
		if err != nil {
			return uuid.Nil, false, err
		}
		return r.BranchID, true, nil
	}
}

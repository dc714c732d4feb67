package server

import (
	"errors"
	"strings"
	"time"

	"ppe-backend/internal/admin"
	"ppe-backend/internal/assignment"
	"ppe-backend/internal/attribution"
	"ppe-backend/internal/audit"
	"ppe-backend/internal/auth"
	"ppe-backend/internal/catalog"
	"ppe-backend/internal/config"
	"ppe-backend/internal/dashboard"
	"ppe-backend/internal/employee"
	"ppe-backend/internal/metrics"
	"ppe-backend/internal/models"
	"ppe-backend/internal/notify"
	"ppe-backend/internal/sheet"
	"ppe-backend/internal/stock"
	"ppe-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Deps are the services handlers need beyond the global database handle.
type Deps struct {
	Processor *attribution.Processor
	Emitter   *notify.Emitter
	Sheets    *sheet.Service
}

func errorHandler(c *fiber.Ctx, err error) error {
	var verr *validation.Error
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "validation failed",
			"fields": verr.Fields,
		})
	}

	var ferr *fiber.Error
	if errors.As(err, &ferr) {
		return c.Status(ferr.Code).JSON(fiber.Map{
			"error": ferr.Message,
		})
	}

	zap.L().Error("unexpected error",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal server error",
	})
}

// requestLogger logs one line per request once the error handler has set the final status.
func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		fields := []zap.Field{
			zap.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		}
		switch {
		case status >= fiber.StatusInternalServerError:
			zap.L().Error("request", fields...)
		case status >= fiber.StatusBadRequest:
			zap.L().Warn("request", fields...)
		default:
			zap.L().Debug("request", fields...)
		}
		return nil
	}
}

// New builds the HTTP application with every route mounted.
func New(cfg *config.Config, deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          errorHandler,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(requestLogger())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins(), ","),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowCredentials: true,
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if cfg.MetricsEnabled {
		app.Get("/metrics", metrics.Handler())
	}

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register", auth.RegisterHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg))
	api.Post("/auth/logout", auth.LogoutHandler(cfg))

	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	can := auth.RequirePermission

	protected.Get("/auth/me", auth.MeHandler())

	// Catalog
	protected.Get("/categories", can(models.PermCatalogRead), catalog.ListCategoriesHandler())
	protected.Get("/categories/:id", can(models.PermCatalogRead), catalog.GetCategoryHandler())
	protected.Post("/categories", can(models.PermCatalogWrite), catalog.CreateCategoryHandler())
	protected.Put("/categories/:id", can(models.PermCatalogWrite), catalog.UpdateCategoryHandler())
	protected.Delete("/categories/:id", can(models.PermCatalogWrite), catalog.DeleteCategoryHandler())

	protected.Get("/materials", can(models.PermCatalogRead), catalog.ListMaterialsHandler())
	protected.Get("/materials/:id", can(models.PermCatalogRead), catalog.GetMaterialHandler())
	protected.Get("/materials/:id/details", can(models.PermCatalogRead), catalog.MaterialDetailsHandler())
	protected.Get("/materials/:id/stock", can(models.PermStockRead), stock.MaterialStockHandler())
	protected.Get("/materials/:id/categories", can(models.PermStockRead), stock.MaterialCategoriesHandler())
	protected.Get("/materials/:id/history", can(models.PermAttributionRead), attribution.MaterialHistoryHandler())
	protected.Post("/materials", can(models.PermCatalogWrite), catalog.CreateMaterialHandler())
	protected.Put("/materials/:id", can(models.PermCatalogWrite), catalog.UpdateMaterialHandler())
	protected.Delete("/materials/:id", can(models.PermCatalogWrite), catalog.DeleteMaterialHandler())

	// Employees
	protected.Get("/employees", can(models.PermEmployeeRead), employee.ListEmployeesHandler())
	protected.Get("/employees/:id", can(models.PermEmployeeRead), employee.GetEmployeeHandler())
	protected.Get("/employees/:id/attributions", can(models.PermAttributionRead), attribution.EmployeeHistoryHandler())
	protected.Post("/employees", can(models.PermEmployeeWrite), employee.CreateEmployeeHandler())
	protected.Put("/employees/:id", can(models.PermEmployeeWrite), employee.UpdateEmployeeHandler())
	protected.Delete("/employees/:id", can(models.PermEmployeeWrite), employee.DeleteEmployeeHandler())

	// Stock
	protected.Get("/stocks", can(models.PermStockRead), stock.ListStockHandler())
	protected.Get("/stocks/export", can(models.PermStockRead), stock.ExportStockHandler(cfg.CriticalStockThreshold))
	protected.Post("/stocks", can(models.PermStockWrite), stock.AddStockHandler())
	protected.Post("/stocks/import", can(models.PermStockWrite), stock.ImportStockHandler())

	// Assignments and attributions
	protected.Get("/assignments", can(models.PermAssignmentRead), assignment.ListAssignmentsHandler())
	protected.Get("/assignments/:id", can(models.PermAssignmentRead), assignment.GetAssignmentHandler())
	protected.Post("/assignments", can(models.PermAssignmentWrite), assignment.CreateAssignmentHandler())

	protected.Get("/attributions", can(models.PermAttributionRead), attribution.ListAttributionsHandler())
	protected.Post("/attributions", can(models.PermAttributionWrite), attribution.CreateAttributionHandler(deps.Processor))
	protected.Post("/attributions/:id/sheet", can(models.PermSheetGenerate), sheet.GenerateSheetHandler(deps.Sheets))
	protected.Get("/attributions/:id/sheet", can(models.PermAttributionRead), sheet.DownloadSheetHandler(deps.Sheets))

	// Notifications: every authenticated user reads their own inbox.
	protected.Get("/notifications", notify.ListNotificationsHandler())
	protected.Post("/notifications", can(models.PermNotificationSend), notify.CreateNotificationHandler(deps.Emitter))

	// Dashboard
	protected.Get("/dashboard/summary", can(models.PermDashboardRead), dashboard.SummaryHandler(cfg.CriticalStockThreshold))

	// Audit logs
	protected.Get("/audit-logs", can(models.PermAuditRead), audit.ListAuditLogsHandler())
	protected.Post("/audit-logs/:id/undo", can(models.PermAuditUndo), audit.UndoAuditLogHandler())

	// User management
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(can(models.PermUserManage))
	adminRoutes.Get("/users", admin.ListUsersHandler())
	adminRoutes.Post("/users", admin.CreateUserHandler())
	adminRoutes.Put("/users/:id/role", admin.UpdateUserRoleHandler())
	adminRoutes.Delete("/users/:id", admin.DeleteUserHandler())

	return app
}

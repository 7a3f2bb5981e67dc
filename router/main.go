package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/sahilchouksey/catalog-api/config"
	"github.com/sahilchouksey/catalog-api/database"
	"github.com/sahilchouksey/catalog-api/handlers"
	admin_handlers "github.com/sahilchouksey/catalog-api/handlers/admin"
	applicant_handlers "github.com/sahilchouksey/catalog-api/handlers/applicant"
	auth_handlers "github.com/sahilchouksey/catalog-api/handlers/auth"
	course_handlers "github.com/sahilchouksey/catalog-api/handlers/course"
	curriculum_handlers "github.com/sahilchouksey/catalog-api/handlers/curriculum"
	faculty_handlers "github.com/sahilchouksey/catalog-api/handlers/faculty"
	"github.com/sahilchouksey/catalog-api/services"
	"github.com/sahilchouksey/catalog-api/services/consistency"
	"github.com/sahilchouksey/catalog-api/services/spaces"
	"github.com/sahilchouksey/catalog-api/utils"
	"github.com/sahilchouksey/catalog-api/utils/auth"
	"github.com/sahilchouksey/catalog-api/utils/cache"
	"github.com/sahilchouksey/catalog-api/utils/middleware"
)

// Deps are the optional collaborators of the API. Nil fields disable the
// features that need them.
type Deps struct {
	Env      *config.EnviornmentVariable
	Logger   zerolog.Logger
	Registry *prometheus.Registry
	// Redis backs catalog locks and brute force protection
	Redis *cache.RedisCache
	// Spaces stores faculty thumbnails
	Spaces  *spaces.Client
	Auditor admin_handlers.OrphanAuditor
}

func SetupRoutes(app *fiber.App, store database.Storage, deps Deps) {
	env := deps.Env

	jwtIssuer := env.JWT_ISSUER
	if jwtIssuer == "" {
		jwtIssuer = "catalog-api"
	}

	// Initialize JWT manager with config
	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		Secret: env.JWT_SECRET,
		Expiry: 24 * time.Hour,
		Issuer: jwtIssuer,
	})

	db := store.GetDB()

	// Consistency engine shared by all catalog services
	engine := consistency.NewEngine(db,
		consistency.WithLogger(deps.Logger.With().Str("component", "consistency").Logger()),
		consistency.WithMetrics(consistency.NewMetrics(deps.Registry)),
	)

	opts := services.Options{
		LockTTL: time.Duration(env.LOCK_TTL_SECONDS) * time.Second,
		Logger:  &deps.Logger,
	}
	var bruteForceProtection *middleware.BruteForceProtection
	if deps.Redis != nil {
		opts.Locker = deps.Redis
		bruteForceProtection = middleware.NewBruteForceProtection(deps.Redis)
	} else {
		deps.Logger.Warn().Msg("Redis not configured: catalog locks and brute force protection are disabled")
	}

	var uploader faculty_handlers.ThumbnailUploader
	if deps.Spaces != nil {
		opts.Thumbnails = deps.Spaces
		uploader = deps.Spaces
	}

	curriculumService := services.NewCurriculumService(db, engine, opts)
	facultyService := services.NewFacultyService(db, engine, opts)
	courseService := services.NewCourseService(db, engine, opts)
	userService := services.NewUserService(db, engine, opts)
	admissionService := services.NewAdmissionService(db, engine, opts)
	applicantService := services.NewApplicantService(db, engine, opts)

	authMiddleware := middleware.NewAuthMiddleware(jwtManager, db)

	authHandler := auth_handlers.NewAuthHandler(userService, admissionService, jwtManager, bruteForceProtection)
	curriculumHandler := curriculum_handlers.NewCurriculumHandler(curriculumService)
	facultyHandler := faculty_handlers.NewFacultyHandler(facultyService, uploader, deps.Logger.With().Str("component", "faculty").Logger())
	courseHandler := course_handlers.NewCourseHandler(courseService)
	userHandler := admin_handlers.NewUserHandler(userService, admissionService)
	applicantHandler := applicant_handlers.NewApplicantHandler(applicantService)

	// Apply security middleware
	allowedOrigins := env.ALLOWED_ORIGINS
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://localhost:3001"
	}

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    allowedOrigins,
		RateLimitRequests: 100,             // 100 requests
		RateLimitWindow:   1 * time.Minute, // per minute
		Logger:            deps.Logger.With().Str("component", "http").Logger(),
	})

	// Health check and metrics (public)
	app.Get("/ping", utils.MakeHTTPHandleFunc(handlers.HandleCheckHealth, store))
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))

	// API v1 group
	api := app.Group("/api/v1")

	// Auth routes (public)
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", bruteForceProtection.CheckAndRecordAttempt(), authHandler.Login)

	// Profile routes (protected)
	profileGroup := api.Group("/profile", authMiddleware.Required())
	profileGroup.Get("/", authHandler.GetProfile)
	profileGroup.Put("/", authHandler.UpdateProfile)
	profileGroup.Post("/registrations", authHandler.RegisterCourses)

	// Admission applications (public)
	api.Post("/applicants", applicantHandler.Apply)

	// Curricula routes
	curricula := api.Group("/curricula")
	curricula.Get("/", curriculumHandler.ListCurricula)                                         // Public: List curricula
	curricula.Get("/:id", curriculumHandler.GetCurriculum)                                      // Public: Get curriculum with faculties
	curricula.Post("/", authMiddleware.RequireAdmin(), curriculumHandler.CreateCurriculum)      // Admin only: Create curriculum
	curricula.Put("/:id", authMiddleware.RequireAdmin(), curriculumHandler.UpdateCurriculum)    // Admin only: Update curriculum and reconcile faculties
	curricula.Delete("/:id", authMiddleware.RequireAdmin(), curriculumHandler.DeleteCurriculum) // Admin only: Delete curriculum subtree

	// Faculties routes
	faculties := api.Group("/faculties")
	faculties.Get("/", facultyHandler.ListFaculties)                                                // Public: List faculties
	faculties.Get("/:id", facultyHandler.GetFaculty)                                                // Public: Get faculty with courses
	faculties.Post("/", authMiddleware.RequireAdmin(), facultyHandler.CreateFaculty)                // Admin only: Create faculty
	faculties.Put("/:id", authMiddleware.RequireAdmin(), facultyHandler.UpdateFaculty)              // Admin only: Update faculty and reconcile courses
	faculties.Delete("/:id", authMiddleware.RequireAdmin(), facultyHandler.DeleteFaculty)           // Admin only: Delete faculty subtree
	faculties.Post("/:id/thumbnail", authMiddleware.RequireAdmin(), facultyHandler.UploadThumbnail) // Admin only: Upload thumbnail

	// Courses routes
	courses := api.Group("/courses")
	courses.Get("/", courseHandler.ListCourses)                                                                         // Public: List courses
	courses.Get("/:id", courseHandler.GetCourse)                                                                        // Public: Get course with requirements
	courses.Post("/", authMiddleware.RequireAdmin(), courseHandler.CreateCourse)                                        // Admin only: Create course
	courses.Put("/:id", authMiddleware.RequireAdmin(), courseHandler.UpdateCourse)                                      // Admin only: Update course
	courses.Delete("/:id", authMiddleware.RequireAdmin(), courseHandler.DeleteCourse)                                   // Admin only: Delete course subtree
	courses.Post("/:id/requirements", authMiddleware.RequireAdmin(), courseHandler.AddRequirement)                      // Admin only: Add requirement
	courses.Put("/:id/requirements/:requirement_id", authMiddleware.RequireAdmin(), courseHandler.UpdateRequirement)    // Admin only: Edit or move requirement
	courses.Delete("/:id/requirements/:requirement_id", authMiddleware.RequireAdmin(), courseHandler.DeleteRequirement) // Admin only: Remove requirement

	// Admin routes
	admin := api.Group("/admin", authMiddleware.RequireAdmin())
	admin.Post("/users", userHandler.CreateUser)
	admin.Get("/users/:id", userHandler.GetUser)
	admin.Put("/users/:id", userHandler.UpdateUser)
	admin.Delete("/users/:id", userHandler.DeleteUser)
	admin.Post("/users/:id/registrations/approve", userHandler.ApproveRegistrations)
	admin.Post("/users/:id/registrations/reject", userHandler.RejectRegistrations)
	admin.Post("/users/:id/enrollments/complete", userHandler.CompleteCourses)
	admin.Get("/applicants", applicantHandler.ListApplicants)
	admin.Post("/applicants/upgrade", applicantHandler.UpgradeApplicants)
	admin.Delete("/applicants/:id", applicantHandler.DeleteApplicant)
	admin.Get("/job-logs", utils.MakeHTTPHandleFunc(admin_handlers.ListJobLogs, store))
	admin.Post("/audit/orphans", admin_handlers.RunOrphanAudit(deps.Auditor))
}

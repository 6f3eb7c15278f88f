package server

import (
	"log"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"rag-workspace-be/internal/bootstrap"
	"rag-workspace-be/internal/config"
	"rag-workspace-be/internal/pkg/serverutils"
)

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit: 25 * 1024 * 1024, // uploads
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.App.CorsAllowedOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Content-Type",
	}))

	app.Use(otelfiber.Middleware())
	app.Use(serverutils.ErrorHandlerMiddleware())

	registerRoutes(app, container)

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	log.Printf("Server is running on http://localhost:%s", s.cfg.App.Port)
	return s.app.Listen(":" + s.cfg.App.Port)
}

func registerRoutes(app *fiber.App, c *bootstrap.Container) {
	c.HealthController.RegisterRoutes(app)

	api := app.Group("/api")
	c.WorkspaceController.RegisterRoutes(api)
	c.RagConfigController.RegisterRoutes(api)
	c.DocumentController.RegisterRoutes(api)
	c.ChatController.RegisterRoutes(api)
}

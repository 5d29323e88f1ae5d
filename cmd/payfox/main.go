package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ManuelReschke/PayFox/app/repository"
	"github.com/ManuelReschke/PayFox/internal/pkg/billing"
	"github.com/ManuelReschke/PayFox/internal/pkg/cache"
	"github.com/ManuelReschke/PayFox/internal/pkg/database"
	"github.com/ManuelReschke/PayFox/internal/pkg/env"
	"github.com/ManuelReschke/PayFox/internal/pkg/mail"
	"github.com/ManuelReschke/PayFox/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "8000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	repository.SetGlobalFactory(repository.NewFactory(database.GetDB()))

	// The provider client is constructed once and injected. A missing API
	// key degrades checkout/cancel to 5xx but keeps webhooks working.
	dodo, err := billing.NewDodoClientFromEnv()
	if err != nil {
		log.Printf("Warning: %v - checkout and cancellation are disabled", err)
	}
	var dodoAPI billing.DodoAPI
	if dodo != nil {
		dodoAPI = dodo
	}
	svc := billing.NewServiceFromDB(database.GetDB(), dodoAPI, mail.SendMail)

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024,
	})

	app.Use(recover.New(), logger.New(), helmet.New())

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins(),
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
	}))

	router.InstallRouter(app, svc)

	return app
}

func allowedOrigins() string {
	origins := []string{"http://localhost:3000", "https://localhost:3000"}
	if frontend := strings.TrimRight(env.GetEnv("FRONTEND_URL", ""), "/"); frontend != "" {
		origins = append(origins, frontend)
	}
	return strings.Join(origins, ", ")
}

package main

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/picshelf/PicShelf/internal/pkg/cache"
	"github.com/picshelf/PicShelf/internal/pkg/database"
	"github.com/picshelf/PicShelf/internal/pkg/env"
	"github.com/picshelf/PicShelf/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	app := fiber.New(fiber.Config{
		AppName: "PicShelf",
	})
	app.Use(recover.New(), logger.New())

	app.Get("/up", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	router.InstallRouter(app)

	return app
}

package main

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gridbench/gridbench/internal/config"
	httpHandlers "github.com/gridbench/gridbench/internal/http"
	"github.com/gridbench/gridbench/internal/service"
	"github.com/gridbench/gridbench/internal/store"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	st, err := store.Connect(context.Background(), store.Options{DSN: config.DSN(), ConnectRetries: config.ConnectRetries()})
	if err != nil {
		log.Fatal().Err(err).Msg("store connect failed")
	}
	defer st.Close()

	svcs := service.New(st.DB(), st)
	app := fiber.New()

	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })

	httpHandlers.Register(app, svcs)

	addr := config.APIAddr()
	log.Info().Str("addr", addr).Msg("api listening")
	log.Fatal().Err(app.Listen(addr)).Msg("server exit")
}

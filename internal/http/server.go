package http

import (
	"errors"
	"time"

	fzl "github.com/gofiber/contrib/fiberzerolog"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/rs/zerolog/log"

	"github.com/forscht/relock/internal/bench"
	"github.com/forscht/relock/internal/http/api"
)

type Config struct {
	Addr         string `mapstructure:"addr"`
	HTTPSAddr    string `mapstructure:"https_addr"`
	HTTPSKeyPath string `mapstructure:"https_keypath"`
	HTTPSCrtPath string `mapstructure:"https_crtpath"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	GuestMode    bool   `mapstructure:"guest_mode"`
	// RunTimeout bounds runs submitted over the API. Zero means one minute.
	RunTimeout time.Duration `mapstructure:"run_timeout"`
}

// New builds the fiber app serving the API. Runs posted without a full
// workload are completed from defaults.
func New(cfg *Config, defaults bench.Config) *fiber.App {
	fconfig := fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(ctx *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError // Status code defaults to 500
			if ctx.BaseURL() == "http://" || ctx.BaseURL() == "https://" {
				return nil
			}
			// Retrieve the custom status code if it's a *fiber.Error
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			if code != fiber.StatusInternalServerError {
				return ctx.Status(code).JSON(api.Response{Message: err.Error()})
			}
			log.Error().Str("c", "httpserver").Err(err).Str("path", ctx.Path()).Msg("request failed")
			return ctx.Status(code).JSON(api.Response{Message: "internal server error"})
		},
	}

	// Initialize fiber app
	app := fiber.New(fconfig)

	runTimeout := cfg.RunTimeout
	if runTimeout <= 0 {
		runTimeout = time.Minute
	}

	// Setup config vars
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("username", cfg.Username)
		c.Locals("password", cfg.Password)
		c.Locals("guestmode", cfg.GuestMode)
		c.Locals("runtimeout", runTimeout)
		return c.Next()
	})

	// Enable logger
	logger := log.With().Str("c", "httpserver").Logger()
	app.Use(fzl.New(fzl.Config{Logger: &logger}))

	// Enable cors
	app.Use(cors.New())

	// Register API routes
	api.Load(app, defaults)

	return app
}

func Serv(cfg *Config, defaults bench.Config) error {
	app := New(cfg, defaults)

	// Error channel to capture any listen errors
	errChan := make(chan error)

	// Listen on HTTP
	go func() {
		if cfg.Addr != "" {
			log.Info().Str("c", "http").Str("addr", cfg.Addr).Msg("starting http server")
			errChan <- app.Listen(cfg.Addr)
		}
	}()

	// Listen on HTTPS
	go func() {
		if cfg.HTTPSAddr != "" && cfg.HTTPSCrtPath != "" && cfg.HTTPSKeyPath != "" {
			log.Info().Str("c", "http").Str("addr", cfg.HTTPSAddr).Msg("starting https server")
			errChan <- app.ListenTLS(cfg.HTTPSAddr, cfg.HTTPSCrtPath, cfg.HTTPSKeyPath)
		}
	}()

	// Return the first error received
	return <-errChan
}

// Package server exposes the widget HTTP API the device consumes.
package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/sixcolor/photoframe/internal/source"
	"github.com/sixcolor/photoframe/internal/widget"
)

// Server wires the data source registry into the HTTP routes.
type Server struct {
	registry *source.Registry
	log      zerolog.Logger
	app      *fiber.App
}

func New(registry *source.Registry, log zerolog.Logger) *Server {
	s := &Server{
		registry: registry,
		log:      log.With().Str("component", "server").Logger(),
		app: fiber.New(fiber.Config{
			DisableStartupMessage: true,
		}),
	}

	s.app.Get("/health", s.health)
	s.app.Get("/api/widget/:name", s.widgetList)
	s.app.Get("/api/widget/:name/:orientation/*", s.widgetImage)
	s.app.Get("/debug/palette", s.debugPalette)

	return s
}

// App returns the fiber app, exposed for tests.
func (s *Server) App() *fiber.App { return s.app }

// Listen blocks serving on addr.
func (s *Server) Listen(addr string) error {
	s.log.Info().Str("addr", addr).Msg("listening")
	return s.app.Listen(addr)
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown() error { return s.app.Shutdown() }

func (s *Server) health(c *fiber.Ctx) error {
	return c.SendString("ok")
}

// widgetList returns the item array for a named widget. The list's own
// freshness policy travels in the X-Cache-Policy header.
func (s *Server) widgetList(c *fiber.Ctx) error {
	src, err := s.registry.Get(c.Params("name"))
	if err != nil {
		return s.fail(c, err)
	}

	items, err := src.FetchItems(c.Context())
	if err != nil {
		return s.fail(c, err)
	}

	c.Set("X-Cache-Policy", src.ListPolicy().String())
	return c.JSON(items)
}

// widgetImage returns rendered indexed-image bytes for one item path. The
// orientation path segment selects the target dimensions; content is
// addressed by cache key upstream of this handler, so responses are
// immutable.
func (s *Server) widgetImage(c *fiber.Ctx) error {
	src, err := s.registry.Get(c.Params("name"))
	if err != nil {
		return s.fail(c, err)
	}

	orient, err := widget.ParseOrientation(c.Params("orientation"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(err.Error())
	}

	path := c.Params("*")
	if path == "" {
		return c.Status(fiber.StatusBadRequest).SendString("missing item path")
	}

	data, err := src.FetchImage(c.Context(), path, orient)
	if err != nil {
		return s.fail(c, err)
	}

	c.Set(fiber.HeaderContentType, "application/octet-stream")
	c.Set(fiber.HeaderCacheControl, "public, max-age=31536000, immutable")
	return c.Send(data)
}

// fail maps the error taxonomy onto HTTP statuses.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, source.ErrUnknownSource), errors.Is(err, source.ErrNotFound):
		return c.Status(fiber.StatusNotFound).SendString(err.Error())
	case errors.Is(err, source.ErrBadPath):
		return c.Status(fiber.StatusBadRequest).SendString(err.Error())
	case errors.Is(err, source.ErrUpstream):
		s.log.Warn().Err(err).Str("path", c.Path()).Msg("upstream failure")
		return c.Status(fiber.StatusBadGateway).SendString(err.Error())
	default:
		s.log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
		return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
	}
}

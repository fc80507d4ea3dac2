package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/otodzorelashvili/Sea-Backend/internal/auth"
	"github.com/otodzorelashvili/Sea-Backend/internal/hub"
	"github.com/otodzorelashvili/Sea-Backend/internal/ws"
)

const maxUploadBytes = 10 * 1024 * 1024

// Uploader is the media collaborator behind the boundary upload endpoint.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
}

type Server struct {
	hub         *hub.Hub
	verifier    auth.Verifier
	uploader    Uploader
	enforceAuth bool
	log         *zap.SugaredLogger
}

func NewServer(h *hub.Hub, gw *ws.Gateway, verifier auth.Verifier, uploader Uploader, enforceAuth bool, log *zap.SugaredLogger) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit:             maxUploadBytes + 1024,
		DisableStartupMessage: true,
	})
	app.Use(fiberlogger.New())
	s := &Server{hub: h, verifier: verifier, uploader: uploader, enforceAuth: enforceAuth, log: log}

	v1 := app.Group("/v1")
	v1.Get("/health", s.health)

	v1.Get("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	v1.Get("/ws", websocket.New(gw.Handler()))

	v1.Post("/upload", s.upload)

	// local-disk media fallback serves its files from here
	app.Static("/uploads", "./uploads")

	return app
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":       "healthy",
		"connections":  s.hub.NumSessions(),
		"online_users": len(s.hub.OnlineUserIDs()),
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}

// POST /v1/upload (multipart/form-data "file") -> {"url": ...}
func (s *Server) upload(c *fiber.Ctx) error {
	if s.enforceAuth {
		token, err := auth.ParseBearer(c.Get("Authorization"))
		if err != nil {
			return jsonError(c, fiber.StatusUnauthorized, "missing auth")
		}
		if _, err := s.verifier.Verify(token); err != nil {
			return jsonError(c, fiber.StatusUnauthorized, "invalid token")
		}
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "no file uploaded")
	}
	if fh.Size > maxUploadBytes {
		return jsonError(c, fiber.StatusBadRequest, "file too large")
	}
	f, err := fh.Open()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "cannot open file")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "cannot read file")
	}

	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	if !strings.HasPrefix(ct, "image/") && !strings.HasPrefix(ct, "video/") {
		return jsonError(c, fiber.StatusBadRequest, "only images and videos allowed")
	}

	ext := ""
	if i := strings.LastIndex(fh.Filename, "."); i >= 0 {
		ext = fh.Filename[i:]
	}
	key := fmt.Sprintf("media/%d-%s%s", time.Now().Unix(), uuid.New().String()[:8], ext)
	url, err := s.uploader.Upload(c.Context(), key, ct, data)
	if err != nil {
		s.log.Errorw("media upload", "key", key, "err", err)
		return jsonError(c, fiber.StatusInternalServerError, "upload failed")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"url": url})
}

func jsonError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"status": "error", "message": msg})
}

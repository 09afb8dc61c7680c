package handlers

import (
	models "clipsify/internal/media"
	"clipsify/internal/metrics"
	"clipsify/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"
)

type Deps struct {
	Verifier middleware.SessionVerifier
	Limiter  middleware.Limiter
	Log      *zap.Logger

	Auth     *AuthHandler
	Upload   *UploadHandler
	Media    *MediaHandler
	Playback *PlaybackHandler
	Profile  *ProfileHandler
}

func Register(app *fiber.App, d Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	session := middleware.RequireSession(d.Verifier, d.Log)
	api := app.Group("/api")

	// Authorization stays anonymous. A valid session only changes the rate limit key.
	authorize := []fiber.Handler{middleware.OptionalSession(d.Verifier)}
	if d.Limiter != nil {
		authorize = append(authorize, middleware.RateLimit(d.Limiter, d.Log))
	}
	authorize = append(authorize, d.Upload.Authorize)
	api.Get("/auth/imagekit-auth", authorize...)
	api.Get("/upload", authorize...)
	api.Post("/upload", session, d.Upload.Proxy)

	api.Post("/auth/register", d.Auth.Register)
	api.Post("/auth/login", d.Auth.Login)

	for _, kind := range []models.Kind{models.KindImage, models.KindVideo} {
		g := api.Group("/" + string(kind))
		g.Get("/", d.Media.List(kind))
		g.Post("/", session, d.Media.Commit(kind))
		g.Get("/my", session, d.Media.ListMine(kind))
		g.Put("/update-name", session, d.Media.UpdateName(kind))
	}
	api.Post("/video/public", d.Playback.PublicURL)

	api.Get("/profile", session, d.Profile.Get)
	api.Put("/profile", session, d.Profile.Update)
	api.Get("/stats", session, d.Media.Stats)
}

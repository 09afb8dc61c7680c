package handlers

import (
	service "clipsify/internal/services"
	utils "clipsify/internal/utis"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type PlaybackHandler struct {
	resolver *service.PlaybackResolver
	log      *zap.Logger
}

func NewPlaybackHandler(resolver *service.PlaybackResolver, log *zap.Logger) *PlaybackHandler {
	return &PlaybackHandler{resolver: resolver, log: log}
}

type playbackReq struct {
	VideoURL string `json:"videoUrl"`
}

// POST /api/video/public
func (h *PlaybackHandler) PublicURL(c *fiber.Ctx) error {
	if !h.resolver.Configured() {
		return utils.JSONError(c, fiber.StatusInternalServerError, "ImageKit configuration missing")
	}
	var req playbackReq
	if err := c.BodyParser(&req); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "Missing video URL")
	}
	u, err := h.resolver.Resolve(c.UserContext(), req.VideoURL)
	if err != nil {
		return writeError(c, h.log, err, "Failed to generate public URL")
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"publicUrl": u})
}

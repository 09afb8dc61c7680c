package handlers

import (
	"encoding/json"

	models "clipsify/internal/media"
	"clipsify/internal/middleware"
	service "clipsify/internal/services"
	utils "clipsify/internal/utis"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type MediaHandler struct {
	svc *service.MediaService
	log *zap.Logger
}

func NewMediaHandler(svc *service.MediaService, log *zap.Logger) *MediaHandler {
	return &MediaHandler{svc: svc, log: log}
}

// commitReq accepts both the image and the video payload. PostedBy is read so
// old clients keep working, but authorship always comes from the session.
type commitReq struct {
	Title          string                 `json:"title"`
	Description    string                 `json:"description"`
	ImageURL       string                 `json:"imageUrl"`
	VideoURL       string                 `json:"videoUrl"`
	ThumbnailURL   string                 `json:"thumbnailUrl"`
	Transformation *models.Transformation `json:"transformation"`
	Controls       *bool                  `json:"controls"`
	PostedBy       json.RawMessage        `json:"postedBy"`
}

// POST /api/image and /api/video
func (h *MediaHandler) Commit(kind models.Kind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		who, ok := middleware.IdentityFrom(c)
		if !ok {
			return utils.JSONError(c, fiber.StatusUnauthorized, "Unauthorized")
		}
		var req commitReq
		if err := c.BodyParser(&req); err != nil {
			return utils.JSONError(c, fiber.StatusBadRequest, "invalid body")
		}

		in := service.CommitInput{
			Kind:           kind,
			Title:          req.Title,
			Description:    req.Description,
			MediaURL:       req.ImageURL,
			Transformation: req.Transformation,
			Controls:       req.Controls,
		}
		if kind == models.KindVideo {
			in.MediaURL = req.VideoURL
			in.ThumbnailURL = req.ThumbnailURL
		}

		asset, err := h.svc.Commit(c.UserContext(), who, in)
		if err != nil {
			return writeError(c, h.log, err, "Failed to save "+string(kind))
		}
		if kind == models.KindVideo {
			return utils.JSONSuccess(c, fiber.StatusCreated, fiber.Map{"message": "Video saved successfully", "video": asset})
		}
		return utils.JSONSuccess(c, fiber.StatusCreated, fiber.Map{"message": "Image saved successfully", "image": asset})
	}
}

// GET /api/image and /api/video
func (h *MediaHandler) List(kind models.Kind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		assets, err := h.svc.ListAll(c.UserContext(), kind)
		if err != nil {
			return writeError(c, h.log, err, "Failed to fetch "+string(kind)+"s")
		}
		return utils.JSONSuccess(c, fiber.StatusOK, assets)
	}
}

// GET /api/image/my and /api/video/my
func (h *MediaHandler) ListMine(kind models.Kind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		who, ok := middleware.IdentityFrom(c)
		if !ok {
			return utils.JSONError(c, fiber.StatusUnauthorized, "Unauthorized")
		}
		assets, err := h.svc.ListMine(c.UserContext(), kind, who.UserID)
		if err != nil {
			return writeError(c, h.log, err, "Failed to fetch "+string(kind)+"s")
		}
		return utils.JSONSuccess(c, fiber.StatusOK, assets)
	}
}

type updateNameReq struct {
	NewName string `json:"newName"`
}

// PUT /api/image/update-name and /api/video/update-name
func (h *MediaHandler) UpdateName(kind models.Kind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		who, ok := middleware.IdentityFrom(c)
		if !ok {
			return utils.JSONError(c, fiber.StatusUnauthorized, "Unauthorized")
		}
		var req updateNameReq
		if err := c.BodyParser(&req); err != nil {
			return utils.JSONError(c, fiber.StatusBadRequest, "invalid body")
		}
		n, err := h.svc.PropagateName(c.UserContext(), kind, who.UserID, req.NewName)
		if err != nil {
			return writeError(c, h.log, err, "Failed to update name in "+string(kind)+"s")
		}
		return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{
			"message":      "Name updated successfully in " + string(kind) + "s",
			"updatedCount": n,
		})
	}
}

// GET /api/stats
func (h *MediaHandler) Stats(c *fiber.Ctx) error {
	who, ok := middleware.IdentityFrom(c)
	if !ok {
		return utils.JSONError(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	st, err := h.svc.Stats(c.UserContext(), who.UserID)
	if err != nil {
		return writeError(c, h.log, err, "Failed to fetch statistics")
	}
	return utils.JSONSuccess(c, fiber.StatusOK, st)
}

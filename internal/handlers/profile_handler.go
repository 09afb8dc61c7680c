package handlers

import (
	"errors"

	models "clipsify/internal/media"
	"clipsify/internal/middleware"
	service "clipsify/internal/services"
	utils "clipsify/internal/utis"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ProfileHandler struct {
	svc *service.ProfileService
	log *zap.Logger
}

func NewProfileHandler(svc *service.ProfileService, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{svc: svc, log: log}
}

func profileView(u *models.User) fiber.Map {
	return fiber.Map{
		"name":             u.Name,
		"email":            u.Email,
		"bio":              u.Bio,
		"location":         u.Location,
		"image":            u.Image,
		"profileCompleted": u.ProfileCompleted,
		"joinDate":         u.CreatedAt,
	}
}

// GET /api/profile
func (h *ProfileHandler) Get(c *fiber.Ctx) error {
	who, ok := middleware.IdentityFrom(c)
	if !ok {
		return utils.JSONError(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	u, err := h.svc.Get(c.UserContext(), who)
	if errors.Is(err, service.ErrNotFound) {
		return utils.JSONError(c, fiber.StatusNotFound, "User not found")
	}
	if err != nil {
		return writeError(c, h.log, err, "Failed to fetch profile")
	}
	return utils.JSONSuccess(c, fiber.StatusOK, profileView(u))
}

type profileReq struct {
	Name     *string `json:"name"`
	Bio      *string `json:"bio"`
	Location *string `json:"location"`
}

// PUT /api/profile
func (h *ProfileHandler) Update(c *fiber.Ctx) error {
	who, ok := middleware.IdentityFrom(c)
	if !ok {
		return utils.JSONError(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	var req profileReq
	if err := c.BodyParser(&req); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "invalid body")
	}
	u, err := h.svc.Update(c.UserContext(), who, service.ProfileInput{
		Name:     req.Name,
		Bio:      req.Bio,
		Location: req.Location,
	})
	if err != nil {
		return writeError(c, h.log, err, "Failed to update profile")
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{
		"message": "Profile updated successfully",
		"user":    profileView(u),
	})
}

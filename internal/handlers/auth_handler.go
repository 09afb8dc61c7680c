package handlers

import (
	"errors"

	service "clipsify/internal/services"
	utils "clipsify/internal/utis"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AuthHandler struct {
	accounts *service.AccountService
	log      *zap.Logger
}

func NewAuthHandler(accounts *service.AccountService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, log: log}
}

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerReq
	if err := c.BodyParser(&req); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "invalid body")
	}
	_, err := h.accounts.Register(c.UserContext(), req.Email, req.Password, req.Name)
	if errors.Is(err, service.ErrConflict) {
		return utils.JSONError(c, fiber.StatusBadRequest, "User already exists")
	}
	if err != nil {
		return writeError(c, h.log, err, "Failed to register user")
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"message": "User registered successfully"})
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginReq
	if err := c.BodyParser(&req); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "invalid body")
	}
	sess, err := h.accounts.Login(c.UserContext(), req.Email, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		return utils.JSONError(c, fiber.StatusUnauthorized, "Invalid email or password")
	}
	if err != nil {
		return writeError(c, h.log, err, "Login failed")
	}
	return utils.JSONSuccess(c, fiber.StatusOK, sess)
}

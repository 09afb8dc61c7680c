package handlers

import (
	"errors"
	"strings"

	service "clipsify/internal/services"
	utils "clipsify/internal/utis"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// writeError maps service errors onto the HTTP taxonomy: validation problems
// are 400 with their message, anything else is a 500 with a generic message
// and the detail goes to the log only.
func writeError(c *fiber.Ctx, log *zap.Logger, err error, generic string) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return utils.JSONError(c, fiber.StatusBadRequest, validationMessage(err))
	case errors.Is(err, service.ErrNotFound):
		return utils.JSONError(c, fiber.StatusNotFound, "Not found")
	}
	log.Error(generic, zap.String("path", c.Path()), zap.Error(err))
	return utils.JSONError(c, fiber.StatusInternalServerError, generic)
}

func validationMessage(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, service.ErrValidation.Error()+": "); i >= 0 {
		msg = msg[i+len(service.ErrValidation.Error())+2:]
	}
	if j := strings.LastIndex(msg, "invalid file: "); j >= 0 {
		msg = msg[j+len("invalid file: "):]
	}
	return msg
}

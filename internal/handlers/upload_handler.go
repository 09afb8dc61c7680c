package handlers

import (
	"errors"

	"clipsify/internal/cdn"
	"clipsify/internal/middleware"
	service "clipsify/internal/services"
	utils "clipsify/internal/utis"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type UploadHandler struct {
	issuer *service.UploadAuthIssuer
	proxy  *service.UploadProxy
	log    *zap.Logger
}

func NewUploadHandler(issuer *service.UploadAuthIssuer, proxy *service.UploadProxy, log *zap.Logger) *UploadHandler {
	return &UploadHandler{issuer: issuer, proxy: proxy, log: log}
}

// GET /api/auth/imagekit-auth and GET /api/upload
func (h *UploadHandler) Authorize(c *fiber.Ctx) error {
	creds, err := h.issuer.Issue()
	if err != nil {
		return utils.JSONError(c, fiber.StatusInternalServerError, "Authentication for Imagekit failed")
	}
	c.Set(fiber.HeaderCacheControl, "no-store")
	return utils.JSONSuccess(c, fiber.StatusOK, creds)
}

// POST /api/upload (multipart/form-data 'file')
func (h *UploadHandler) Proxy(c *fiber.Ctx) error {
	who, ok := middleware.IdentityFrom(c)
	if !ok {
		return utils.JSONError(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "file missing")
	}
	f, err := fh.Open()
	if err != nil {
		return utils.JSONError(c, fiber.StatusInternalServerError, "cannot open file")
	}
	defer f.Close()

	res, err := h.proxy.Upload(c.UserContext(), who, service.ProxyInput{
		File:        f,
		FileName:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Size:        fh.Size,
	})
	switch {
	case err == nil:
	case errors.Is(err, cdn.ErrNotConfigured):
		return utils.JSONError(c, fiber.StatusInternalServerError, "ImageKit configuration missing")
	case errors.Is(err, cdn.ErrDenied), errors.Is(err, utils.ErrUploadFailed):
		h.log.Error("proxy upload", zap.String("file", fh.Filename), zap.Error(err))
		return utils.JSONError(c, fiber.StatusBadGateway, "Upload failed")
	default:
		return writeError(c, h.log, err, "Upload failed")
	}

	out := fiber.Map{
		"kind":         res.Kind,
		"url":          res.URL,
		"fileId":       res.FileID,
		"thumbnailUrl": res.ThumbnailURL,
	}
	out[string(res.Kind)+"Url"] = res.URL
	if res.Transformation != nil {
		out["transformation"] = res.Transformation
	}
	return utils.JSONSuccess(c, fiber.StatusOK, out)
}

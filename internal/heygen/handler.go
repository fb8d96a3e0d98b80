package heygen

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/careloop/companion-backend/internal/auth"
	"github.com/careloop/companion-backend/internal/shared"
	"github.com/labstack/echo/v4"
)

// Handler serves the avatar catalog from the cache.
type Handler struct {
	cache  *AvatarCache
	logger *slog.Logger
}

func NewHandler(cache *AvatarCache, logger *slog.Logger) *Handler {
	return &Handler{
		cache:  cache,
		logger: logger,
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.GET("/:id", h.Details)
	g.POST("/refresh", h.Refresh)
}

// @Summary      List avatars
// @Description  Returns the cached avatar catalog
// @Tags         avatars
// @Produce      json
// @Success      200  {array}   Avatar
// @Failure      401  {object}  shared.APIError
// @Security     BearerAuth
// @Router       /avatars [get]
func (h *Handler) List(c echo.Context) error {
	if auth.GetClaims(c) == nil {
		return shared.Unauthorized("auth_required", "authentication required")
	}

	avatars, err := h.cache.ListAvatars(c.Request().Context())
	if err != nil {
		h.logger.Error("failed to list avatars", "error", err)
		return shared.InternalError("avatars_failed", "failed to list avatars")
	}
	return c.JSON(http.StatusOK, avatars)
}

// @Summary      Get avatar details
// @Tags         avatars
// @Produce      json
// @Param        id   path      string  true  "Avatar ID"
// @Success      200  {object}  Avatar
// @Failure      404  {object}  shared.APIError
// @Security     BearerAuth
// @Router       /avatars/{id} [get]
func (h *Handler) Details(c echo.Context) error {
	if auth.GetClaims(c) == nil {
		return shared.Unauthorized("auth_required", "authentication required")
	}

	avatar, err := h.cache.AvatarDetails(c.Request().Context(), c.Param("id"))
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NotFound("avatar_not_found", "avatar not found")
	}
	if err != nil {
		h.logger.Error("failed to load avatar", "error", err, "avatar_id", c.Param("id"))
		return shared.InternalError("avatars_failed", "failed to load avatar")
	}
	return c.JSON(http.StatusOK, avatar)
}

// @Summary      Refresh the avatar cache
// @Tags         avatars
// @Success      204
// @Failure      401  {object}  shared.APIError
// @Security     BearerAuth
// @Router       /avatars/refresh [post]
func (h *Handler) Refresh(c echo.Context) error {
	if auth.GetClaims(c) == nil {
		return shared.Unauthorized("auth_required", "authentication required")
	}

	if _, err := h.cache.Refresh(c.Request().Context()); err != nil {
		h.logger.Error("failed to refresh avatar cache", "error", err)
		return shared.InternalError("avatars_failed", "failed to refresh avatars")
	}
	return c.NoContent(http.StatusNoContent)
}

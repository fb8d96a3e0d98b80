package prefs

import (
	"log/slog"
	"net/http"

	"github.com/careloop/companion-backend/internal/auth"
	"github.com/careloop/companion-backend/internal/dto"
	"github.com/careloop/companion-backend/internal/shared"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	store  *Store
	logger *slog.Logger
}

func NewHandler(store *Store, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.Get)
	g.PUT("", h.Update)
}

// @Summary      Get preferences
// @Description  Returns the stored conversation preferences merged over defaults
// @Tags         preferences
// @Produce      json
// @Success      200  {object}  Preferences
// @Failure      401  {object}  shared.APIError
// @Security     BearerAuth
// @Router       /preferences [get]
func (h *Handler) Get(c echo.Context) error {
	claims := auth.GetClaims(c)
	if claims == nil {
		return shared.Unauthorized("auth_required", "authentication required")
	}

	preferences, err := h.store.Get(c.Request().Context(), claims.UserID)
	if err != nil {
		// Defaults are still usable; surface them instead of failing.
		h.logger.Warn("failed to load preferences", "error", err, "user_id", claims.UserID)
	}
	return c.JSON(http.StatusOK, preferences)
}

// @Summary      Update preferences
// @Description  Applies a partial preferences update; omitted fields stay unchanged
// @Tags         preferences
// @Accept       json
// @Produce      json
// @Param        body  body      dto.UpdatePreferencesRequest  true  "Fields to update"
// @Success      200   {object}  Preferences
// @Failure      400   {object}  shared.APIError
// @Failure      401   {object}  shared.APIError
// @Security     BearerAuth
// @Router       /preferences [put]
func (h *Handler) Update(c echo.Context) error {
	claims := auth.GetClaims(c)
	if claims == nil {
		return shared.Unauthorized("auth_required", "authentication required")
	}

	var req dto.UpdatePreferencesRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_body", "invalid request body")
	}

	ctx := c.Request().Context()
	if req.VoiceRate != nil {
		if *req.VoiceRate <= 0 || *req.VoiceRate > 2 {
			return shared.BadRequest("invalid_rate", "voice rate must be between 0 and 2")
		}
		if err := h.store.SetVoiceRate(ctx, claims.UserID, *req.VoiceRate); err != nil {
			h.logger.Warn("failed to persist voice rate", "error", err)
		}
	}
	if req.AvatarID != nil {
		if err := h.store.SetAvatar(ctx, claims.UserID, *req.AvatarID); err != nil {
			h.logger.Warn("failed to persist avatar", "error", err)
		}
	}
	if req.AutoStart != nil {
		if err := h.store.SetAutoStart(ctx, claims.UserID, *req.AutoStart); err != nil {
			h.logger.Warn("failed to persist auto start", "error", err)
		}
	}
	if req.Language != nil {
		if err := h.store.SetLanguage(ctx, claims.UserID, *req.Language); err != nil {
			h.logger.Warn("failed to persist language", "error", err)
		}
	}

	preferences, err := h.store.Get(ctx, claims.UserID)
	if err != nil {
		h.logger.Warn("failed to reload preferences", "error", err, "user_id", claims.UserID)
	}
	return c.JSON(http.StatusOK, preferences)
}

package user

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
	g.GET("/me", h.Me)
}

// @Summary      Get current user
// @Description  Returns the currently authenticated user's profile
// @Tags         auth
// @Produce      json
// @Success      200  {object}  dto.MeResponse
// @Failure      401  {object}  shared.APIError
// @Failure      404  {object}  shared.APIError
// @Security     BearerAuth
// @Router       /auth/me [get]
func (h *Handler) Me(c echo.Context) error {
	claims := auth.GetClaims(c)
	if claims == nil {
		return shared.Unauthorized("auth_required", "authentication required")
	}

	u, err := h.store.FindOrCreate(c.Request().Context(), claims.UserID, claims.Email, claims.Name, shared.Role(claims.Role))
	if err != nil {
		h.logger.Error("failed to load user", "error", err, "user_id", claims.UserID)
		return shared.InternalError("user_failed", "failed to load user")
	}

	return c.JSON(http.StatusOK, dto.MeResponse{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
		Role:  string(u.Role),
	})
}

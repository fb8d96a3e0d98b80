package history

import (
	"log/slog"
	"net/http"
	"strconv"

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
	g.GET("", h.List)
}

// @Summary      Get chat history
// @Description  Returns one page of the user's conversation history, newest first
// @Tags         history
// @Produce      json
// @Param        page  query     int  false  "Page number, starting at 1"
// @Success      200   {object}  dto.HistoryPageResponse
// @Failure      401   {object}  shared.APIError
// @Security     BearerAuth
// @Router       /history [get]
func (h *Handler) List(c echo.Context) error {
	claims := auth.GetClaims(c)
	if claims == nil {
		return shared.Unauthorized("auth_required", "authentication required")
	}

	page := 1
	if raw := c.QueryParam("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return shared.BadRequest("invalid_page", "page must be a positive integer")
		}
		page = parsed
	}

	messages, total, err := h.store.Page(c.Request().Context(), claims.UserID, page)
	if err != nil {
		h.logger.Error("failed to load history", "error", err, "user_id", claims.UserID)
		return shared.InternalError("history_failed", "failed to load history")
	}

	out := make([]dto.HistoryMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, dto.HistoryMessage{
			ID:        m.ID,
			SessionID: m.SessionID,
			Sender:    string(m.Sender),
			Text:      m.Text,
			Mode:      m.Mode,
			CreatedAt: m.CreatedAt,
		})
	}

	return c.JSON(http.StatusOK, dto.HistoryPageResponse{
		Messages: out,
		Page:     page,
		PageSize: PageSize,
		Total:    total,
	})
}

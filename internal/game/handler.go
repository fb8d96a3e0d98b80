package game

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/careloop/companion-backend/internal/auth"
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
	g.GET("/active", h.ActiveSession)
	g.GET("/active/messages", h.ActiveMessages)
	g.POST("/:id/start", h.Start)
	g.POST("/end", h.End)
}

// @Summary      List games
// @Description  Returns the enabled game catalog
// @Tags         games
// @Produce      json
// @Success      200  {array}   Game
// @Failure      401  {object}  shared.APIError
// @Security     BearerAuth
// @Router       /games [get]
func (h *Handler) List(c echo.Context) error {
	if auth.GetClaims(c) == nil {
		return shared.Unauthorized("auth_required", "authentication required")
	}

	games, err := h.store.ListGames(c.Request().Context())
	if err != nil {
		h.logger.Error("failed to list games", "error", err)
		return shared.InternalError("games_failed", "failed to list games")
	}
	return c.JSON(http.StatusOK, games)
}

// @Summary      Get active game session
// @Tags         games
// @Produce      json
// @Success      200  {object}  GameSession
// @Failure      404  {object}  shared.APIError
// @Security     BearerAuth
// @Router       /games/active [get]
func (h *Handler) ActiveSession(c echo.Context) error {
	claims := auth.GetClaims(c)
	if claims == nil {
		return shared.Unauthorized("auth_required", "authentication required")
	}

	session, err := h.store.Active(c.Request().Context(), claims.UserID)
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NotFound("no_active_game", "no active game session")
	}
	if err != nil {
		h.logger.Error("failed to load active game", "error", err, "user_id", claims.UserID)
		return shared.InternalError("games_failed", "failed to load active game")
	}
	return c.JSON(http.StatusOK, session)
}

// @Summary      Get the active game session's messages
// @Tags         games
// @Produce      json
// @Success      200  {array}   GameMessage
// @Failure      404  {object}  shared.APIError
// @Security     BearerAuth
// @Router       /games/active/messages [get]
func (h *Handler) ActiveMessages(c echo.Context) error {
	claims := auth.GetClaims(c)
	if claims == nil {
		return shared.Unauthorized("auth_required", "authentication required")
	}

	session, err := h.store.Active(c.Request().Context(), claims.UserID)
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NotFound("no_active_game", "no active game session")
	}
	if err != nil {
		h.logger.Error("failed to load active game", "error", err, "user_id", claims.UserID)
		return shared.InternalError("games_failed", "failed to load active game")
	}

	messages, err := h.store.Messages(c.Request().Context(), session.ID)
	if err != nil {
		h.logger.Error("failed to load game messages", "error", err, "session_id", session.ID)
		return shared.InternalError("games_failed", "failed to load game messages")
	}
	return c.JSON(http.StatusOK, messages)
}

// @Summary      Start a game session
// @Description  Starts a session for the given game, ending any session still running
// @Tags         games
// @Produce      json
// @Param        id   path      string  true  "Game ID"
// @Success      200  {object}  GameSession
// @Failure      404  {object}  shared.APIError
// @Security     BearerAuth
// @Router       /games/{id}/start [post]
func (h *Handler) Start(c echo.Context) error {
	claims := auth.GetClaims(c)
	if claims == nil {
		return shared.Unauthorized("auth_required", "authentication required")
	}

	gameID := c.Param("id")
	if _, err := h.store.GetGame(c.Request().Context(), gameID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NotFound("game_not_found", "game not found")
		}
		h.logger.Error("failed to load game", "error", err, "game_id", gameID)
		return shared.InternalError("games_failed", "failed to load game")
	}

	session, err := h.store.Start(c.Request().Context(), claims.UserID, gameID)
	if err != nil {
		h.logger.Error("failed to start game", "error", err, "user_id", claims.UserID, "game_id", gameID)
		return shared.InternalError("games_failed", "failed to start game")
	}
	return c.JSON(http.StatusOK, session)
}

// @Summary      End the active game session
// @Tags         games
// @Success      204
// @Failure      401  {object}  shared.APIError
// @Security     BearerAuth
// @Router       /games/end [post]
func (h *Handler) End(c echo.Context) error {
	claims := auth.GetClaims(c)
	if claims == nil {
		return shared.Unauthorized("auth_required", "authentication required")
	}

	if err := h.store.End(c.Request().Context(), claims.UserID); err != nil {
		h.logger.Error("failed to end game", "error", err, "user_id", claims.UserID)
		return shared.InternalError("games_failed", "failed to end game")
	}
	return c.NoContent(http.StatusNoContent)
}

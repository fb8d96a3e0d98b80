package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/careloop/companion-backend/internal/auth"
	"github.com/careloop/companion-backend/internal/conversation"
	"github.com/careloop/companion-backend/internal/dto"
	"github.com/careloop/companion-backend/internal/prefs"
	"github.com/careloop/companion-backend/internal/shared"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	manager *conversation.Manager
	prefs   *prefs.Store
	tokens  *TokenService
	logger  *slog.Logger
}

func NewHandler(manager *conversation.Manager, prefStore *prefs.Store, tokens *TokenService, logger *slog.Logger) *Handler {
	return &Handler{
		manager: manager,
		prefs:   prefStore,
		tokens:  tokens,
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/connect", h.Connect)
	g.GET("/status", h.Status)
	g.GET("/stream-token", h.StreamToken)
}

// @Summary      Open the conversation connection
// @Description  Upgrades to a websocket carrying conversation events and recorded audio
// @Tags         chat
// @Param        token  query  string  false  "Bearer token for clients that cannot set headers"
// @Success      101
// @Failure      401  {object}  shared.APIError
// @Security     BearerAuth
// @Router       /chat/connect [get]
func (h *Handler) Connect(c echo.Context) error {
	claims := auth.GetClaims(c)
	if claims == nil {
		return shared.Unauthorized("auth_required", "authentication required")
	}

	ws, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return err
	}

	conn := NewClientConn(ws, claims.UserID, h.logger)
	session := h.manager.Open(c.Request().Context(), claims.UserID, conn)

	h.logger.Info("client connected", "user_id", claims.UserID)

	ctx := c.Request().Context()
	go conn.writePump(ctx)
	conn.readPump(ctx, func(event ClientEvent) {
		h.dispatch(ctx, session, event)
	}, session.AppendAudio)

	h.manager.Remove(claims.UserID, session)
	h.logger.Info("client disconnected", "user_id", claims.UserID)
	return nil
}

// dispatch maps one client event onto the conversation session.
func (h *Handler) dispatch(ctx context.Context, session *conversation.ConversationSession, event ClientEvent) {
	switch event.Type {
	case ClientFocusGained:
		session.OnFocusGained(ctx)
	case ClientFocusLost:
		session.OnFocusLost()
	case ClientBackgrounded:
		session.OnAppBackgrounded(ctx)
	case ClientMicPressed:
		session.OnMicPressed(ctx)
	case ClientMicReleased:
		session.OnMicReleased(ctx)
	case ClientAudioFinished:
		session.OnAudioFinished()
	case ClientModeSwitch:
		var payload ModeSwitchPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			h.logger.Warn("bad mode_switch payload", "error", err)
			return
		}
		session.OnModeSwitch(ctx, conversation.Mode(payload.Mode))
	case ClientGameSelected:
		var payload GameSelectedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			h.logger.Warn("bad game_selected payload", "error", err)
			return
		}
		session.OnGameSelected(ctx, conversation.GameContext{ID: payload.ID, Title: payload.Title})
	case ClientVoiceRate:
		var payload VoiceRatePayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			h.logger.Warn("bad voice_rate payload", "error", err)
			return
		}
		// Persistence failures keep the in-memory value authoritative.
		if err := h.prefs.SetVoiceRate(ctx, session.UserID(), payload.Rate); err != nil {
			h.logger.Warn("failed to persist voice rate", "error", err)
		}
		session.OnVoiceRateChanged(ctx, payload.Rate)
	case ClientAvatarChanged:
		var payload AvatarChangedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			h.logger.Warn("bad avatar_changed payload", "error", err)
			return
		}
		if err := h.prefs.SetAvatar(ctx, session.UserID(), payload.AvatarID); err != nil {
			h.logger.Warn("failed to persist avatar", "error", err)
		}
		session.OnAvatarChanged(ctx, payload.AvatarID)
	case ClientUtterance:
		var payload UtterancePayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			h.logger.Warn("bad utterance payload", "error", err)
			return
		}
		session.OnTypedUtterance(ctx, payload.Text)
	default:
		h.logger.Warn("unknown client event", "type", event.Type)
	}
}

// @Summary      Get the conversation session status
// @Description  Reports whether the user has a live conversation and its current mode and turn state
// @Tags         chat
// @Produce      json
// @Success      200  {object}  dto.SessionStatusResponse
// @Failure      401  {object}  shared.APIError
// @Security     BearerAuth
// @Router       /chat/status [get]
func (h *Handler) Status(c echo.Context) error {
	claims := auth.GetClaims(c)
	if claims == nil {
		return shared.Unauthorized("auth_required", "authentication required")
	}

	session, ok := h.manager.Get(claims.UserID)
	if !ok {
		return c.JSON(http.StatusOK, dto.SessionStatusResponse{Connected: false})
	}

	state := session.TurnState()
	return c.JSON(http.StatusOK, dto.SessionStatusResponse{
		Connected:  true,
		Mode:       string(session.Mode()),
		Phase:      string(state.Phase),
		MicEnabled: state.MicEnabled,
		Speaking:   state.AvatarSpeaking || state.AudioPlaying,
	})
}

// @Summary      Get a stream viewer token
// @Description  Returns a subscribe-only token for the avatar video room
// @Tags         chat
// @Produce      json
// @Param        room  query     string  true  "Room name"
// @Success      200   {object}  dto.StreamTokenResponse
// @Failure      400   {object}  shared.APIError
// @Failure      401   {object}  shared.APIError
// @Security     BearerAuth
// @Router       /chat/stream-token [get]
func (h *Handler) StreamToken(c echo.Context) error {
	claims := auth.GetClaims(c)
	if claims == nil {
		return shared.Unauthorized("auth_required", "authentication required")
	}

	room := c.QueryParam("room")
	if room == "" {
		return shared.BadRequest("missing_room", "room is required")
	}

	token, err := h.tokens.GenerateViewerToken(claims.UserID, room)
	if err != nil {
		h.logger.Error("failed to mint stream token", "error", err, "user_id", claims.UserID)
		return shared.InternalError("token_failed", "failed to create stream token")
	}

	return c.JSON(http.StatusOK, dto.StreamTokenResponse{
		Token: token,
		URL:   h.tokens.URL(),
	})
}

// internal/handlers/websocket_playback_handler.go
// WebSocket feed: every connection owns its own playback cursor
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dramafeed/internal/logging"
	"dramafeed/internal/models"
	"dramafeed/internal/services"
	ws "dramafeed/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WebSocket message types
type WSMessageType string

const (
	WSMessageTypeCurrent  WSMessageType = "current"
	WSMessageTypeNext     WSMessageType = "next"
	WSMessageTypePrevious WSMessageType = "previous"
	WSMessageTypeSelect   WSMessageType = "select"
	WSMessageTypeEpisode  WSMessageType = "episode"
	WSMessageTypeEmpty    WSMessageType = "empty"
	WSMessageTypeError    WSMessageType = "error"

	// Pushed to every socket after an ingestion
	WSMessageTypeCatalogUpdated WSMessageType = "catalog_updated"
)

// WebSocket message structure
type WSMessage struct {
	Type      WSMessageType   `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

type WSSelectData struct {
	EpisodeID int64 `json:"episodeId"`
}

type WSEmptyData struct {
	Message string `json:"message"`
}

type WSCatalogUpdatedData struct {
	EpisodeID int64  `json:"episodeId"`
	Title     string `json:"title"`
}

type WSErrorData struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type WebSocketPlaybackHandler struct {
	playback *services.PlaybackService
	manager  *ws.Manager
	upgrader websocket.Upgrader
}

func NewWebSocketPlaybackHandler(playback *services.PlaybackService, manager *ws.Manager, allowedOrigins []string) *WebSocketPlaybackHandler {
	return &WebSocketPlaybackHandler{
		playback: playback,
		manager:  manager,
		upgrader: websocket.Upgrader{
			CheckOrigin:     originChecker(allowedOrigins),
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// originChecker accepts same-host requests, listed origins, or anything when "*" is listed
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(o, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || set["*"] || set[origin] {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

// HandleWebSocket upgrades the request and serves one playback session
func (h *WebSocketPlaybackHandler) HandleWebSocket(c *gin.Context) {
	logger := logging.FromContext(c.Request.Context(), "ws")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to upgrade WebSocket connection")
		return
	}

	ctx := c.Request.Context()
	var viewer string
	h.manager.Serve(conn,
		func(client *ws.Client) {
			viewer = "ws:" + client.ID
			logger.Info().Str("viewer", viewer).Msg("🔌 playback socket opened")
		},
		func(client *ws.Client, payload []byte) {
			var msg WSMessage
			reply := errorMessage("Invalid message", "INVALID_MESSAGE")
			if err := json.Unmarshal(payload, &msg); err == nil {
				reply = h.handleMessage(ctx, viewer, msg)
			}
			reply.RequestID = msg.RequestID
			reply.Timestamp = time.Now()
			client.SendJSON(reply)
		},
	)

	h.playback.Sessions().Forget(viewer)
	logger.Info().Str("viewer", viewer).Msg("🔌 playback socket closed")
}

// NotifyEpisodeAdded tells every open socket the catalog grew
func (h *WebSocketPlaybackHandler) NotifyEpisodeAdded(episode *models.Episode) {
	msg := mustMessage(WSMessageTypeCatalogUpdated, WSCatalogUpdatedData{EpisodeID: episode.ID, Title: episode.Title})
	msg.Timestamp = time.Now()
	h.manager.Broadcast(msg)
}

func (h *WebSocketPlaybackHandler) handleMessage(ctx context.Context, viewer string, msg WSMessage) WSMessage {
	var (
		view *models.PlaybackView
		err  error
	)
	switch msg.Type {
	case WSMessageTypeCurrent:
		view, err = h.playback.Current(ctx, viewer)
	case WSMessageTypeNext:
		view, err = h.playback.Navigate(ctx, viewer, models.DirectionNext)
	case WSMessageTypePrevious:
		view, err = h.playback.Navigate(ctx, viewer, models.DirectionPrevious)
	case WSMessageTypeSelect:
		var data WSSelectData
		if jsonErr := json.Unmarshal(msg.Data, &data); jsonErr != nil || data.EpisodeID <= 0 {
			return errorMessage("episodeId is required", "INVALID_SELECT_DATA")
		}
		view, err = h.playback.Select(ctx, viewer, data.EpisodeID)
	default:
		return errorMessage("Unknown message type", "INVALID_MESSAGE_TYPE")
	}

	switch {
	case errors.Is(err, models.ErrCatalogEmpty):
		return mustMessage(WSMessageTypeEmpty, WSEmptyData{Message: EmptyFeedMessage})
	case err != nil:
		var nf *models.NotFoundError
		if errors.As(err, &nf) {
			return errorMessage(err.Error(), "NOT_FOUND")
		}
		return errorMessage("playback unavailable", "INTERNAL")
	}
	return mustMessage(WSMessageTypeEpisode, view)
}

func errorMessage(message, code string) WSMessage {
	return mustMessage(WSMessageTypeError, WSErrorData{Message: message, Code: code})
}

func mustMessage(t WSMessageType, data interface{}) WSMessage {
	raw, err := json.Marshal(data)
	if err != nil {
		return WSMessage{Type: WSMessageTypeError}
	}
	return WSMessage{Type: t, Data: raw}
}

// GetStats reports open playback sockets for /health
func (h *WebSocketPlaybackHandler) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"active_connections": h.manager.GetActiveConnectionsCount(),
	}
}

package api

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/reelacademy/ra-lms/internal/license"
	"github.com/reelacademy/ra-lms/internal/middleware"
	"github.com/reelacademy/ra-lms/internal/playback"
	"github.com/reelacademy/ra-lms/internal/tokens"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all for dev; restrict in prod
	},
}

// PlaybackEventsHandler is the external event source for watch sessions:
// the client streams position notifications and a terminal end-of-video
// notification over a websocket. How the player transports positions to
// the client is its business; this is the only contract the server needs.
type PlaybackEventsHandler struct {
	Tokens   middleware.TokenValidator
	Sessions middleware.SessionChecker
	Tracker  *playback.Tracker
}

type playbackEvent struct {
	Event    string  `json:"event"` // "timeupdate" | "ended"
	VideoID  string  `json:"videoId"`
	Position float64 `json:"position,omitempty"`
}

type playbackAck struct {
	Event     string `json:"event"`
	VideoID   string `json:"videoId"`
	Completed bool   `json:"completed,omitempty"`
}

func (h *PlaybackEventsHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	// Auth via query param (standard for WS).
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.Tokens.ValidateToken(tokenStr)
	if err != nil || claims.TokenType != tokens.Viewer {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	if _, err := h.Sessions.Get(r.Context(), claims.ID); err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("playback ws: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	key := claims.LicenseKey
	log.Printf("playback ws: connected key=%s", license.KeyPrefix(key))

	for {
		var evt playbackEvent
		if err := conn.ReadJSON(&evt); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("playback ws: read error: %v", err)
			}
			return
		}
		if evt.VideoID == "" {
			continue
		}

		switch evt.Event {
		case "timeupdate":
			h.Tracker.Position(key, evt.VideoID, evt.Position)
		case "ended":
			fresh := h.Tracker.Completed(r.Context(), key, evt.VideoID)
			ack := playbackAck{Event: "ended", VideoID: evt.VideoID, Completed: fresh}
			if err := conn.WriteJSON(ack); err != nil {
				return
			}
		}
	}
}

package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/kasupel/server/internal/core"
)

// SocketMux builds the net/http handler the websocket upgrade is served
// from. It is mounted on its own http.Server next to the fiber app in
// cmd/kasupel-server, since fiber/fasthttp cannot hijack a net/http
// ResponseWriter the way nhooyr.io/websocket's Accept needs to — the
// same "separate listener for the bits fasthttp can't do" shape the
// teacher uses for its optional web UI server.
func (h *Handler) SocketMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/socket", h.socketUpgrade)
	return mux
}

// socketUpgrade implements the connect handshake of spec §6: headers
// `Authorization: SessionKey <id>|<base64 token>` and `Game-ID:
// <integer>`, then hands off to the hub registry for the connection's
// lifetime.
func (h *Handler) socketUpgrade(w http.ResponseWriter, r *http.Request) {
	sessionID, token, err := parseSessionHeader(r.Header.Get("Authorization"))
	if err != nil {
		writeSocketAuthError(w, err)
		return
	}
	userID, err := h.sessions.Authenticate(sessionID, token)
	if err != nil {
		writeSocketAuthError(w, err)
		return
	}
	gameIDHeader := r.Header.Get("Game-ID")
	gameID, err := strconv.ParseInt(gameIDHeader, 10, 64)
	if err != nil {
		writeSocketAuthError(w, core.NewError(core.CodeSocketGameIDMalformed, "Game-ID header is not a valid integer"))
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Warn("websocket accept failed", zap.Error(err))
		return
	}

	if err := h.registry.Connect(r.Context(), gameID, userID, conn); err != nil {
		h.log.Info("socket session ended", zap.Int64("game_id", gameID), zap.Int64("user_id", userID), zap.Error(err))
		conn.Close(websocket.StatusInternalError, core.AsCoded(err).Message)
		return
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

func writeSocketAuthError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(core.AsCoded(err))
}

package httpapi

import (
	"context"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"chatd/pkg/types"
)

// wsPendingFrames bounds client frames read ahead while a reply is generating.
const wsPendingFrames = 8

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		if !corsEnabled {
			return true
		}
		origin := r.Header.Get("Origin")
		for _, o := range corsAllowedOrigins {
			if o == "*" || o == origin {
				return true
			}
		}
		return origin == ""
	},
}

// websocket godoc
// @Summary  Chat over a websocket
// @Description Client frames are ChatRequest JSON; server frames are WSMessage
// @Description with type token, done or error. The session carries over
// @Description between frames on one connection.
// @Router   /ws [get]
func (h *handlers) websocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zlog.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxBodyBytes)

	send := func(m types.WSMessage) error {
		b, err := json.Marshal(m)
		if err != nil {
			return err
		}
		return conn.WriteMessage(websocket.TextMessage, b)
	}

	// Hijacked connections never cancel r.Context(), so the reader owns ctx
	// and cancels it as soon as the client goes away, even mid-reply.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	frames := make(chan []byte, wsPendingFrames)
	go func() {
		defer cancel()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					zlog.Debug().Err(err).Msg("websocket closed")
				}
				return
			}
			select {
			case frames <- data:
			case <-ctx.Done():
				return
			}
		}
	}()

	var session string
	for {
		var data []byte
		select {
		case data = <-frames:
		case <-ctx.Done():
			return
		}
		if ctx.Err() != nil {
			return
		}
		var req types.ChatRequest
		if err := json.Unmarshal(data, &req); err != nil {
			if send(types.WSMessage{Type: "error", Error: "invalid JSON message"}) != nil {
				return
			}
			continue
		}
		if req.SessionID == "" {
			req.SessionID = session
		}

		cl := newChatLog(r, req.Model)
		done := trackChat(transportWS)
		rctx, rcancel := requestContext(ctx)
		reply, err := h.svc.Chat(rctx, toChatRequest(req), func(s string) error {
			cl.fragment(s)
			countFragment(transportWS)
			return send(types.WSMessage{Type: "token", Text: s})
		})
		rcancel()
		done()
		if err != nil {
			cl.end(statusFor(err), err)
			if send(types.WSMessage{Type: "error", Error: err.Error(), SessionID: req.SessionID}) != nil {
				return
			}
			continue
		}
		session = reply.SessionID
		cl.end(http.StatusOK, nil)
		if send(types.WSMessage{Type: "done", Text: reply.Text, SessionID: reply.SessionID}) != nil {
			return
		}
	}
}

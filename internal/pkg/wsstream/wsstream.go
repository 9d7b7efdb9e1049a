// Package wsstream pushes server-side state to websocket clients. Clients
// only listen; anything they send besides control frames is ignored.
package wsstream

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"jobmarket/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true }, // origins are enforced by the CORS middleware
}

// Event is the frame written to clients.
type Event struct {
	Type    string      `json:"type"`
	Payload any         `json:"payload,omitempty"`
	Error   *ErrorEvent `json:"error,omitempty"`
}

type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Upgrade switches the request to a websocket. On failure the upgrader has
// already answered the request.
func Upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws_upgrade_failed path=%s err=%v", r.URL.Path, err)
		return nil, err
	}
	return conn, nil
}

// ErrorMessage converts err into an error frame without leaking internals.
func ErrorMessage(err error) Event {
	e := &ErrorEvent{Code: "INTERNAL_ERROR", Message: "Internal server error"}
	switch {
	case errors.Is(err, domain.ErrStoreUnavailable):
		e = &ErrorEvent{Code: "STORE_UNAVAILABLE", Message: "Service temporarily unavailable, please retry"}
	case errors.Is(err, domain.ErrAuthorization):
		e = &ErrorEvent{Code: "FORBIDDEN", Message: "You are not allowed to perform this action"}
	}
	return Event{Type: "error", Error: e}
}

// CloseWithError sends an error frame and closes the connection.
func CloseWithError(conn *websocket.Conn, err error) {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteJSON(ErrorMessage(err))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, ""))
	conn.Close()
}

// Offer replaces any pending message on ch with msg. ch must have a buffer
// of one; the writer then always sends the latest message.
func Offer[T any](ch chan T, msg T) {
	for {
		select {
		case ch <- msg:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Stream writes every message from msgs to conn until ctx is done, the
// client goes away or msgs is closed. It closes conn before returning.
func Stream[T any](ctx context.Context, conn *websocket.Conn, msgs <-chan T) {
	gone := make(chan struct{})
	go readPump(conn, gone)

	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		case <-gone:
			return
		case msg, ok := <-msgs:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump keeps pong handling alive and reports when the client leaves.
func readPump(conn *websocket.Conn, gone chan<- struct{}) {
	defer close(gone)

	conn.SetReadLimit(maxMsgSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws_read_error remote=%s err=%v", conn.RemoteAddr(), err)
			}
			return
		}
	}
}

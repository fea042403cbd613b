package handlers

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/inkwell/inkwell-backend/internal/events"
)

// NoteEvents streams note change events over a websocket so the browser
// can refetch its note list after mutations. The connection's user ID is
// resolved by the upgrade middleware and stashed in Locals.
func NoteEvents(hub *events.Hub) func(*websocket.Conn) {
	log := logrus.WithField("component", "notes.ws")

	return func(conn *websocket.Conn) {
		defer conn.Close()

		rawID, ok := conn.Locals("user_id").(string)
		if !ok {
			return
		}
		userID, err := uuid.Parse(rawID)
		if err != nil {
			return
		}

		ch := hub.Subscribe(userID)
		defer hub.Unsubscribe(userID, ch)

		// Reader goroutine: we never expect client messages, but reading
		// is what surfaces the close frame.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case event, ok := <-ch:
				if !ok {
					return
				}
				if err := conn.WriteJSON(event); err != nil {
					log.WithError(err).Debug("websocket write failed")
					return
				}
			case <-done:
				return
			}
		}
	}
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"dm_chat/internal/metrics"
	"dm_chat/internal/model"
	"dm_chat/internal/service/delivery"
	"dm_chat/internal/service/presence"
	"dm_chat/internal/utils/log"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// HandleConnect upgrades to a websocket, registers the user as live,
// replays any events queued while they were offline, and feeds submitted
// messages into the delivery engine.
func (s *HttpServer) HandleConnect() http.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // Allow all origins
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := s.authManager.Verify(mux.Vars(r)["token"])
		if err != nil {
			log.Warn("websocket auth failed", zap.Error(err))
			http.Error(w, "could not validate credentials", http.StatusUnauthorized)
			return
		}

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			http.Error(w, "Failed to upgrade", http.StatusInternalServerError)
			return
		}

		conn := presence.NewConn(userID, ws)
		conn.Start()
		s.registry.Register(userID, conn)
		metrics.LiveConnections.Inc()
		log.Info("user connected", zap.String("user", userID))

		if err := s.engine.Replay(r.Context(), userID, conn); err != nil {
			log.Error("replay pending events failed", zap.String("user", userID), zap.Error(err))
		}

		go s.readLoop(userID, conn, ws)
	}
}

func (s *HttpServer) readLoop(userID string, conn *presence.Conn, ws *websocket.Conn) {
	defer func() {
		// liveness goes first: once unregistered, nothing queues new
		// pushes onto this connection
		s.registry.Unregister(userID, conn)
		conn.Close()
		metrics.LiveConnections.Dec()
		log.Info("user disconnected", zap.String("user", userID))
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			log.Debug("websocket closed", zap.Error(err))
			return
		}

		var in model.Message
		if err := json.Unmarshal(data, &in); err != nil {
			_ = conn.Send(model.NewErrorEvent("invalid message format"))
			continue
		}

		// the verified connection identity wins over whatever the payload claims
		in.Sender = userID

		if _, err := s.engine.Submit(context.Background(), &in); err != nil {
			switch {
			case errors.Is(err, delivery.ErrValidation):
				_ = conn.Send(model.NewErrorEvent(err.Error()))
			case errors.Is(err, delivery.ErrBlocked):
				_ = conn.Send(model.NewErrorEvent("conversation is blocked"))
			default:
				log.Error("submit failed", zap.String("user", userID), zap.Error(err))
				_ = conn.Send(model.NewErrorEvent("failed to send message"))
			}
		}
	}
}

// internal/handlers/ws.go
package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ft-transcendence/pong-service/internal/lobby"
)

// Largest inbound frame we accept. Client messages are small JSON objects.
const maxMessageBytes = 8 << 10

const writeTimeout = 5 * time.Second

// WSHandler upgrades the connection, registers it with the lobby, and runs
// the read/write pumps until the client goes away.
func WSHandler(logger *logrus.Logger, app *AppServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")
		c.SetReadLimit(maxMessageBytes)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		conn := lobby.NewConnection(uuid.New())
		conn.Cancel = cancel

		app.Registry.Add(conn)
		app.Registry.SendSnapshot(conn)
		logger.Infof("connection %s established from %s", conn.ID, r.RemoteAddr)

		go writePump(ctx, c, conn, logger)

		readPump(ctx, c, conn, app, logger)

		// ---- Cleanup after readPump exits ----
		cancel()
		app.Cleanup(conn)
		if conn.Slow() {
			c.Close(CloseSlowConsumer, "client not consuming frames")
		} else {
			c.Close(websocket.StatusNormalClosure, "")
		}
		logger.Infof("connection %s closed", conn.ID)
	}
}

// readPump feeds inbound frames to the router until the socket closes.
func readPump(ctx context.Context, c *websocket.Conn, conn *lobby.Connection, app *AppServer, logger *logrus.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		typ, msg, err := c.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				logger.Infof("connection %s: closed by client", conn.ID)
			} else if !strings.Contains(err.Error(), "context canceled") {
				logger.Warnf("connection %s: read error: %v", conn.ID, err)
			}
			return
		}
		if typ != websocket.MessageText {
			logger.Warnf("connection %s: non-text frame, closing", conn.ID)
			c.Close(CloseProtocolAbuse, "text frames only")
			return
		}

		app.Route(conn, msg)
	}
}

// writePump drains the connection's outbound queues. Control frames take
// priority over state snapshots.
func writePump(ctx context.Context, c *websocket.Conn, conn *lobby.Connection, logger *logrus.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-conn.Control():
			if !writeFrame(ctx, c, conn, frame, logger) {
				return
			}
		default:
		}

		select {
		case <-ctx.Done():
			return
		case frame := <-conn.Control():
			if !writeFrame(ctx, c, conn, frame, logger) {
				return
			}
		case frame := <-conn.States():
			if !writeFrame(ctx, c, conn, frame, logger) {
				return
			}
		}
	}
}

func writeFrame(ctx context.Context, c *websocket.Conn, conn *lobby.Connection, frame interface{}, logger *logrus.Logger) bool {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := wsjson.Write(wctx, c, frame); err != nil {
		if !strings.Contains(err.Error(), "context canceled") {
			logger.Warnf("connection %s: write error: %v", conn.ID, err)
		}
		conn.Close()
		return false
	}
	return true
}

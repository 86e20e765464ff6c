// Package ws hosts the WebSocket endpoint: handshake validation, the
// per-connection read/write pumps, and message dispatch.
package ws

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/op/go-logging"

	"github.com/Rooney-Eli/gorilla-groove/internal/auth"
	"github.com/Rooney-Eli/gorilla-groove/internal/config"
	"github.com/Rooney-Eli/gorilla-groove/internal/domain"
	"github.com/Rooney-Eli/gorilla-groove/internal/hub"
	"github.com/Rooney-Eli/gorilla-groove/internal/protocol"
	"github.com/Rooney-Eli/gorilla-groove/internal/service"
)

var log = logging.MustGetLogger("ws")

// Server handles WebSocket connections.
type Server struct {
	cfg      *config.Config
	hub      *hub.Hub
	svc      *service.Service
	auth     *auth.Manager
	upgrader websocket.Upgrader
}

// NewServer creates a new WebSocket server.
func NewServer(cfg *config.Config, h *hub.Hub, svc *service.Service, authManager *auth.Manager) *Server {
	return &Server{
		cfg:  cfg,
		hub:  h,
		svc:  svc,
		auth: authManager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWebSocket validates the handshake, upgrades the connection and
// starts the session. Both validation failures reject the request before
// the upgrade, so no session object ever exists for them.
func (s *Server) HandleWebSocket(c echo.Context) error {
	deviceIdentifier, err := parseDeviceIdentifier(c.Request().URL.RawQuery)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := s.auth.Resolve(c.Request().Context(), bearerToken(c.Request()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
	}

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Errorf("failed to upgrade WebSocket: %v", err)
		return err
	}

	session := s.hub.NewSession(conn, user.ID, deviceIdentifier)
	conn.SetReadLimit(int64(s.cfg.MaxMessageSize))

	if err := s.svc.Connect(c.Request().Context(), session); err != nil {
		log.Errorf("failed to connect session for user %d: %v", user.ID, err)
		conn.Close()
		return nil
	}
	log.Infof("user %d connected to socket with session %s", user.ID, session.ID)

	// Everything the session does downstream hangs off this context; the
	// read pump cancels it when the connection goes away.
	ctx, cancel := context.WithCancel(context.Background())

	go s.writePump(session)
	go s.readPump(ctx, cancel, session)

	return nil
}

// parseDeviceIdentifier enforces the handshake contract: the query must be
// exactly deviceIdentifier=<value>. The value is percent-decoded so clients
// may escape spaces and non-ASCII characters.
func parseDeviceIdentifier(rawQuery string) (string, error) {
	parts := strings.Split(rawQuery, "=")
	if len(parts) != 2 {
		return "", errors.New("query must be exactly deviceIdentifier=<value>")
	}
	if parts[0] != "deviceIdentifier" || parts[1] == "" {
		return "", errors.New("query must be exactly deviceIdentifier=<value>")
	}
	value, err := url.QueryUnescape(parts[1])
	if err != nil {
		return "", errors.New("deviceIdentifier is not a valid query value")
	}
	return value, nil
}

// bearerToken pulls the token out of the Authorization header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// readPump reads messages from the WebSocket connection until it closes,
// then runs the disconnect path (eviction plus optional tombstone).
func (s *Server) readPump(ctx context.Context, cancel context.CancelFunc, session *hub.Session) {
	defer func() {
		cancel()
		s.svc.Disconnect(session)
		session.Conn.Close()
	}()

	session.Conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout()))
	session.Conn.SetPongHandler(func(string) error {
		session.Conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout()))
		return nil
	})

	for {
		_, message, err := session.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Errorf("session %s read error: %v", session.ID, err)
			}
			break
		}
		s.handleMessage(ctx, session, message)
	}
}

// writePump drains the session's send queue onto the socket and keeps the
// connection alive with pings.
func (s *Server) writePump(session *hub.Session) {
	ticker := time.NewTicker(s.cfg.PingInterval())
	defer func() {
		ticker.Stop()
		session.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-session.Send:
			session.Conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout()))
			if !ok {
				session.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := session.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Warningf("session %s write failed: %v", session.ID, err)
				return
			}

		case <-ticker.C:
			session.Conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout()))
			if err := session.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage decodes one inbound payload and dispatches it. Decode
// failures and unsupported tags are logged and dropped; the connection
// stays open either way.
func (s *Server) handleMessage(ctx context.Context, session *hub.Session, data []byte) {
	msg, err := protocol.DecodeRequest(data)
	if err != nil {
		log.Errorf("could not decode message from session %s: %v", session.ID, err)
		return
	}

	switch m := msg.(type) {
	case *protocol.NowListeningRequest:
		err = s.svc.HandleNowListening(ctx, session, m)
	case *protocol.RemotePlayRequest:
		err = s.svc.HandleRemotePlay(ctx, session, m)
	default:
		log.Errorf("no handler for %s message from session %s", msg.Kind(), session.ID)
		return
	}

	if err != nil {
		log.Warningf("session %s %s request failed: %v", session.ID, msg.Kind(), err)
		s.sendError(session, err)
	}
}

// sendError reports a request failure back to the offending session as an
// ERROR envelope. The connection is left open.
func (s *Server) sendError(session *hub.Session, cause error) {
	errMsg := &protocol.ErrorResponse{
		MessageType: protocol.TypeError,
		Code:        errorCode(cause),
		Message:     cause.Error(),
	}
	data, err := protocol.Encode(errMsg)
	if err != nil {
		log.Errorf("could not encode error response: %v", err)
		return
	}
	s.hub.SendIfOpen(session, data)
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrPermissionDenied):
		return protocol.ErrorCodePermissionDenied
	case errors.Is(err, domain.ErrDeviceNotFound):
		return protocol.ErrorCodeDeviceNotFound
	case errors.Is(err, domain.ErrTargetOffline):
		return protocol.ErrorCodeTargetOffline
	case errors.Is(err, domain.ErrInvalidOperation):
		return protocol.ErrorCodeInvalidOperation
	case errors.Is(err, domain.ErrUnsupportedMessageType):
		return protocol.ErrorCodeUnsupportedMessage
	default:
		return protocol.ErrorCodeInternalError
	}
}

package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/inair/warehouse/cache"
	"github.com/inair/warehouse/config"
	"github.com/inair/warehouse/fleet"
	"github.com/inair/warehouse/middleware"
	"github.com/inair/warehouse/model"
	"github.com/inair/warehouse/scan"
	"go.uber.org/zap"
)

// Server owns the WS endpoint: upgrade, auth, read loop, and the
// inbound packet router.
type Server struct {
	hub      *Hub
	router   *Router
	scanSvc  *scan.Service
	fleetSvc *fleet.Service
	cache    cache.Cache
	sec      config.SecurityConfig
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewServer wires the WS server and registers the drone packet handlers.
func NewServer(hub *Hub, scanSvc *scan.Service, fleetSvc *fleet.Service, c cache.Cache, sec config.SecurityConfig, logger *zap.Logger) *Server {
	s := &Server{
		hub:      hub,
		router:   NewRouter(logger),
		scanSvc:  scanSvc,
		fleetSvc: fleetSvc,
		cache:    c,
		sec:      sec,
		logger:   logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(sec.AllowedOrigins),
	}
	s.router.Register("telemetry", s.handleTelemetry)
	s.router.Register("barcode_scan", s.handleBarcodeScan)
	s.router.Register("map", s.handleMap)
	s.router.Register("status", s.handleStatus)
	s.router.Register("ping", s.handlePing)
	return s
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// Handle upgrades GET /ws. Browsers cannot set headers on a WS
// handshake, so the token rides in the query string. The same endpoint
// serves operators and drones; the token role decides which.
func (s *Server) Handle(c *gin.Context) {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	claims, err := middleware.ParseToken(tokenStr, s.sec.JWTSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	if claims.Role == middleware.RoleOperator {
		cacheCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		exists, err := s.cache.Exists(cacheCtx, "session:"+tokenStr)
		cancel()
		if err != nil || !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	sess := NewSession(uuid.NewString(), claims.UserID, claims.DroneID, claims.Role, conn, s.logger)
	sess.TraceID = middleware.GetTraceID(c)

	switch claims.Role {
	case middleware.RoleDrone:
		s.hub.AddDrone(sess)
		if err := s.fleetSvc.SetStatus(context.Background(), sess.DroneID, model.DroneIdle); err != nil {
			s.logger.Warn("drone status update failed", zap.Int64("drone_id", sess.DroneID), zap.Error(err))
		}
		s.fleetSvc.BroadcastSnapshot(context.Background())
		go s.readPump(sess, true)
	default:
		s.hub.AddOperator(sess)
		go s.readPump(sess, false)
	}
}

// readPump reads until the connection drops, routing each packet.
func (s *Server) readPump(sess *Session, isDrone bool) {
	defer func() {
		if isDrone {
			if s.hub.RemoveDrone(sess) {
				s.fleetSvc.MarkOffline(context.Background(), sess.DroneID)
			}
		} else {
			s.hub.RemoveOperator(sess)
		}
	}()

	sess.SetReadDeadline()
	sess.Conn.SetPongHandler(func(string) error {
		sess.SetReadDeadline()
		return nil
	})

	for {
		_, raw, err := sess.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("ws read error",
					zap.String("session_id", sess.ID),
					zap.Error(err))
			}
			return
		}
		sess.SetReadDeadline()
		s.router.Dispatch(sess, raw)
	}
}

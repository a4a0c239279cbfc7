package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"mercator-hq/ganymede/pkg/bus"
	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/limits/ratelimit"
	"mercator-hq/ganymede/pkg/telemetry/metrics"
	"mercator-hq/ganymede/pkg/tokenstore"
)

// handlerFunc processes one dispatched client frame.
type handlerFunc func(s *Session, payload map[string]any) error

// Options configures a Gateway. Config is required; everything else is
// optional and degrades gracefully when absent.
type Options struct {
	// Config is the session layer configuration.
	Config config.GatewayConfig

	// Bus carries events between the gateway and the rest of the process.
	// Nil gets the process default bus.
	Bus *bus.Bus

	// Agent answers chat:send. Nil puts chat into demo mode.
	Agent AgentRuntime

	// Channels backs the channel:* operations. Nil rejects them with a
	// status error.
	Channels ChannelService

	// Tokens validates UI-session tokens during upgrade auth. Nil skips
	// store lookup.
	Tokens tokenstore.Store

	// Metrics records session and frame counts. Nil disables recording.
	Metrics *metrics.Collector

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Clock overrides time.Now for activity and sweep decisions.
	Clock func() time.Time

	// Sleep overrides time.Sleep for demo-mode chunk pacing.
	Sleep func(time.Duration)
}

// Gateway is the WebSocket session layer: it upgrades connections, owns
// the session set, dispatches client frames to handlers, and bridges
// sessions onto the event bus. Gateway is safe for concurrent use.
type Gateway struct {
	cfg      config.GatewayConfig
	bus      *bus.Bus
	agent    AgentRuntime
	channels ChannelService
	tokens   tokenstore.Store
	metrics  *metrics.Collector
	logger   *slog.Logger
	clock    func() time.Time
	sleep    func(time.Duration)

	upgrader websocket.Upgrader
	handlers map[string]handlerFunc
	forwards []func()

	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// New creates a Gateway, registers its frame handlers, and installs the
// bus forwarding rules. Call Start to launch the heartbeat and idle
// sweeper, and Shutdown to drain.
func New(opts Options) *Gateway {
	cfg := opts.Config
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 30 * time.Second
	}
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = 10 * time.Minute
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 20
	}
	if cfg.RateLimit.RefillPerSecond <= 0 {
		cfg.RateLimit.RefillPerSecond = 1
	}

	g := &Gateway{
		cfg:      cfg,
		bus:      opts.Bus,
		agent:    opts.Agent,
		channels: opts.Channels,
		tokens:   opts.Tokens,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		clock:    opts.Clock,
		sleep:    opts.Sleep,
		sessions: make(map[string]*Session),
		done:     make(chan struct{}),
	}
	if g.bus == nil {
		g.bus = bus.Default()
	}
	if g.logger == nil {
		g.logger = slog.Default().With("component", "gateway")
	}
	if g.clock == nil {
		g.clock = time.Now
	}
	if g.sleep == nil {
		g.sleep = time.Sleep
	}

	// Origin policy is enforced after the upgrade so the client receives
	// a close frame with code 1008 instead of an opaque HTTP failure.
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     func(*http.Request) bool { return true },
	}

	g.handlers = map[string]handlerFunc{
		"chat:send":  g.handleChatSend,
		"chat:stop":  g.handleChatStop,
		"chat:retry": g.handleChatRetry,

		"channel:connect":     g.handleChannelConnect,
		"channel:disconnect":  g.handleChannelDisconnect,
		"channel:subscribe":   g.handleChannelSubscribe,
		"channel:unsubscribe": g.handleChannelUnsubscribe,
		"channel:send":        g.handleChannelSend,
		"channel:list":        g.handleChannelList,

		"agent:configure": g.handleAgentConfigure,
		"agent:stop":      g.handleAgentStop,

		"tool:cancel": g.handleToolCancel,

		"session:ping": g.handleSessionPing,
		"session:pong": g.handleSessionPong,

		"event:subscribe":   g.handleEventSubscribe,
		"event:unsubscribe": g.handleEventUnsubscribe,
		"event:publish":     g.handleEventPublish,
	}

	g.registerForwards()
	return g
}

// Start launches the heartbeat and idle sweeper goroutines. Idempotent.
func (g *Gateway) Start() {
	g.startOnce.Do(func() {
		g.wg.Add(2)
		go g.heartbeatLoop()
		go g.sweepLoop()
	})
}

// ServeHTTP upgrades the request and runs the session until the
// connection drops. Auth, origin, and capacity are checked after the
// upgrade so failures arrive as close frames: 1008 for auth and origin,
// 1013 for capacity.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if g.isClosed() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Debug("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	userID, ok := g.authenticate(r)
	if !ok {
		g.logger.Warn("upgrade rejected", "reason", "authentication failed", "remote", r.RemoteAddr)
		closeConn(conn, websocket.ClosePolicyViolation, "authentication failed")
		return
	}

	if !g.originAllowed(r) {
		g.logger.Warn("upgrade rejected", "reason", "origin not allowed", "origin", r.Header.Get("Origin"), "remote", r.RemoteAddr)
		closeConn(conn, websocket.ClosePolicyViolation, "origin not allowed")
		return
	}

	s, ok := g.register(conn, userID)
	if !ok {
		g.logger.Warn("upgrade rejected", "reason", "server at capacity", "max_connections", g.cfg.MaxConnections)
		closeConn(conn, websocket.CloseTryAgainLater, "server at capacity")
		return
	}

	g.logger.Info("session opened", "session_id", s.ID, "user_id", s.UserID, "remote", r.RemoteAddr)
	g.metrics.SessionOpened()

	if err := s.Send(EventConnectionReady, map[string]any{"sessionId": s.ID}); err != nil {
		g.logger.Debug("ready frame not delivered", "session_id", s.ID, "error", err)
	}

	g.readLoop(s)
}

// register inserts the session under the capacity cap. The cap is checked
// under the lock so concurrent upgrades cannot overshoot it.
func (g *Gateway) register(conn *websocket.Conn, userID string) (*Session, bool) {
	bucket := ratelimit.NewTokenBucket(g.cfg.RateLimit.Burst, g.cfg.RateLimit.RefillPerSecond, g.clock)
	s := newSession(uuid.NewString(), userID, conn, bucket, g.logger, g.clock)

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed || (g.cfg.MaxConnections > 0 && len(g.sessions) >= g.cfg.MaxConnections) {
		return nil, false
	}
	g.sessions[s.ID] = s
	return s, true
}

// readLoop consumes inbound frames until the connection errors, then tears
// the session down.
func (g *Gateway) readLoop(s *Session) {
	defer g.destroy(s)
	s.conn.SetReadLimit(maxInboundBytes)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				g.logger.Debug("read failed", "session_id", s.ID, "error", err)
			}
			return
		}
		g.dispatch(s, data)
	}
}

// destroy removes a session, cancels its chats, and releases its bridge
// subscriptions. Safe to call more than once.
func (g *Gateway) destroy(s *Session) {
	g.mu.Lock()
	_, present := g.sessions[s.ID]
	delete(g.sessions, s.ID)
	g.mu.Unlock()
	if !present {
		return
	}

	s.cancelChat("")
	s.releasePatterns()
	s.close(websocket.CloseNormalClosure, "")
	g.metrics.SessionClosed()
	g.logger.Info("session closed", "session_id", s.ID)
}

// Session returns a live session by ID.
func (g *Gateway) Session(id string) (*Session, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s, ok := g.sessions[id]
	return s, ok
}

// SessionCount returns the number of live sessions.
func (g *Gateway) SessionCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.sessions)
}

// snapshot returns the current session set without holding the lock
// during iteration.
func (g *Gateway) snapshot() []*Session {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Session, 0, len(g.sessions))
	for _, s := range g.sessions {
		out = append(out, s)
	}
	return out
}

// Broadcast sends an event to every live session and returns the number
// of sessions written. The envelope is marshalled once.
func (g *Gateway) Broadcast(eventType string, payload any) int {
	data, err := json.Marshal(serverFrame{Type: eventType, Payload: payload})
	if err != nil {
		g.logger.Error("broadcast marshal failed", "type", eventType, "error", err)
		return 0
	}

	var sent int
	for _, s := range g.snapshot() {
		if err := s.sendRaw(data); err == nil {
			sent++
		}
	}
	return sent
}

// BroadcastToChannel sends an event to every session subscribed to the
// channel and returns the number of sessions written.
func (g *Gateway) BroadcastToChannel(channelID, eventType string, payload any) int {
	data, err := json.Marshal(serverFrame{Type: eventType, Payload: payload})
	if err != nil {
		g.logger.Error("broadcast marshal failed", "type", eventType, "error", err)
		return 0
	}

	var sent int
	for _, s := range g.snapshot() {
		if !s.SubscribedTo(channelID) {
			continue
		}
		if err := s.sendRaw(data); err == nil {
			sent++
		}
	}
	return sent
}

// heartbeatLoop pings every session on the configured interval. Sessions
// whose ping write fails are torn down.
func (g *Gateway) heartbeatLoop() {
	defer g.wg.Done()
	ticker := time.NewTicker(g.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-g.done:
			return
		case <-ticker.C:
			for _, s := range g.snapshot() {
				if err := s.ping(); err != nil {
					g.logger.Debug("heartbeat failed", "session_id", s.ID, "error", err)
					g.destroy(s)
				}
			}
		}
	}
}

// sweepLoop closes sessions idle past the session timeout. It runs at a
// third of the timeout, capped at one minute, so an expired session lives
// at most slightly past its deadline.
func (g *Gateway) sweepLoop() {
	defer g.wg.Done()
	cadence := g.cfg.SessionTimeout / 3
	if cadence <= 0 || cadence > time.Minute {
		cadence = time.Minute
	}
	ticker := time.NewTicker(cadence)
	defer ticker.Stop()
	for {
		select {
		case <-g.done:
			return
		case <-ticker.C:
			g.sweepIdle()
		}
	}
}

func (g *Gateway) sweepIdle() {
	now := g.clock()
	for _, s := range g.snapshot() {
		if now.Sub(s.LastActivity()) > g.cfg.SessionTimeout {
			g.logger.Info("session expired", "session_id", s.ID, "idle", now.Sub(s.LastActivity()).String())
			s.close(websocket.CloseNormalClosure, "session timed out")
			g.destroy(s)
		}
	}
}

func (g *Gateway) isClosed() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.closed
}

// Shutdown stops accepting upgrades, closes every session with 1001, and
// waits for in-flight handler goroutines up to the context deadline.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.stopOnce.Do(func() {
		g.mu.Lock()
		g.closed = true
		g.mu.Unlock()
		close(g.done)

		for _, unsubscribe := range g.forwards {
			unsubscribe()
		}

		for _, s := range g.snapshot() {
			s.close(websocket.CloseGoingAway, "Server shutting down")
			g.destroy(s)
		}
	})

	waited := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// closeConn rejects a just-upgraded connection with a close frame.
func closeConn(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = conn.Close()
}

// Default singleton, mirroring bus.Default: one gateway per process built
// on first use.
var (
	defaultMu      sync.Mutex
	defaultGateway *Gateway
)

// Default returns the process-wide gateway, creating it from opts on the
// first call. Later calls ignore opts.
func Default(opts Options) *Gateway {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultGateway == nil {
		defaultGateway = New(opts)
	}
	return defaultGateway
}

// ResetDefault shuts the process-wide gateway down and clears it. Tests
// use this to start from a clean slate.
func ResetDefault() {
	defaultMu.Lock()
	g := defaultGateway
	defaultGateway = nil
	defaultMu.Unlock()
	if g != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = g.Shutdown(ctx)
	}
}

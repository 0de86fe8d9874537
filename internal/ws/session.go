package ws

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/deluthium/darkpool-mm/internal/depth"
	"github.com/deluthium/darkpool-mm/internal/metrics"
	"github.com/deluthium/darkpool-mm/internal/protocol"
	"github.com/deluthium/darkpool-mm/internal/quote"
)

// State is the session lifecycle state.
type State int32

const (
	StateConnecting State = iota
	StateAuthenticating
	StateLive
	StateClosing
	StateClosed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "Connecting"
	case StateAuthenticating:
		return "Authenticating"
	case StateLive:
		return "Live"
	case StateClosing:
		return "Closing"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Config holds the transport parameters for one session.
type Config struct {
	ServerURL        string        // WebSocket hub address
	APIToken         string        // JWT presented in the handshake header
	HandshakeTimeout time.Duration // Dial timeout
	ReadTimeout      time.Duration // Per-read deadline and liveness window
	WriteTimeout     time.Duration // Per-write deadline
}

// DefaultConfig returns the default transport parameters.
func DefaultConfig() *Config {
	return &Config{
		HandshakeTimeout: 10 * time.Second,
		ReadTimeout:      90 * time.Second,
		WriteTimeout:     10 * time.Second,
	}
}

// Session runs one hub connection from handshake to teardown. It does not
// reconnect; the supervisor constructs a fresh Session per attempt.
//
// While live, three goroutines share the connection: the reader dispatches
// inbound frames, the depth pusher publishes snapshots with a per-session
// sequence counter (global across pairs, reset on every new session), and
// the keepalive sends pings and watches inbound liveness. All writes are
// serialized through one mutex so frames are never interleaved.
type Session struct {
	cfg      *Config
	registry *quote.Registry
	handler  *quote.Handler
	builder  *depth.Builder
	met      *metrics.Metrics
	logger   *slog.Logger
	onLive   func()

	conn      *websocket.Conn
	state     atomic.Int32
	writeMu   sync.Mutex
	hubCfg    protocol.SessionConfig
	sessionID string
	monitor   *Monitor

	stopCh   chan struct{}
	stopOnce sync.Once
	errCh    chan error
	wg       sync.WaitGroup
}

// NewSession creates a session for a single connection attempt. onLive, if
// set, is invoked once after a successful handshake.
func NewSession(
	cfg *Config,
	registry *quote.Registry,
	handler *quote.Handler,
	builder *depth.Builder,
	met *metrics.Metrics,
	logger *slog.Logger,
	onLive func(),
) *Session {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		cfg:      cfg,
		registry: registry,
		handler:  handler,
		builder:  builder,
		met:      met,
		logger:   logger.With("component", "Session"),
		onLive:   onLive,
		stopCh:   make(chan struct{}),
		errCh:    make(chan error, 4),
	}
	s.state.Store(int32(StateConnecting))
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// SessionID returns the hub-assigned session ID, set once authenticated.
func (s *Session) SessionID() string {
	return s.sessionID
}

// HubConfig returns the merged session config, set once authenticated.
func (s *Session) HubConfig() protocol.SessionConfig {
	return s.hubCfg
}

func (s *Session) setState(state State) {
	old := State(s.state.Swap(int32(state)))
	if old != state {
		s.logger.Info("session state changed", "from", old.String(), "to", state.String())
	}
}

// Run drives the session until a fatal error, Stop, or context cancellation.
// It returns nil on a clean stop and the fatal error otherwise.
func (s *Session) Run(ctx context.Context) error {
	defer s.setState(StateClosed)

	dialer := websocket.Dialer{
		HandshakeTimeout: s.cfg.HandshakeTimeout,
	}

	header := http.Header{}
	if s.cfg.APIToken != "" {
		header.Set("Authorization", "Bearer "+s.cfg.APIToken)
	}

	conn, resp, err := dialer.DialContext(ctx, s.cfg.ServerURL, header)
	if err != nil {
		if resp != nil {
			s.logger.Error("websocket dial failed",
				"status", resp.StatusCode,
				"url", s.cfg.ServerURL,
				"error", err)
		} else {
			s.logger.Error("websocket dial failed",
				"url", s.cfg.ServerURL,
				"error", err)
		}
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("websocket dial failed: %w", err)
	}
	s.conn = conn
	defer conn.Close()

	s.setState(StateAuthenticating)
	if err := s.authenticate(); err != nil {
		s.setState(StateClosing)
		return err
	}

	s.monitor = newMonitor(s.cfg.ReadTimeout)
	s.setState(StateLive)
	if s.onLive != nil {
		s.onLive()
	}

	s.wg.Add(3)
	go s.readLoop()
	go s.depthLoop()
	go s.keepaliveLoop()

	var runErr error
	select {
	case <-ctx.Done():
	case <-s.stopCh:
	case runErr = <-s.errCh:
	}

	s.setState(StateClosing)
	s.shutdown()
	return runErr
}

// Stop requests a clean teardown. It is level-triggered and safe to call
// more than once.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// authenticate consumes the first inbound frame, which must be a successful
// auth_response, and merges the hub config over the defaults.
func (s *Session) authenticate() error {
	if err := s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
		return fmt.Errorf("failed to set read deadline: %w", err)
	}
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("reading auth response: %w", err)
	}

	typ, err := protocol.Sniff(data)
	if err != nil {
		return fmt.Errorf("reading auth response: %w", err)
	}
	if typ != protocol.TypeAuthResponse {
		return fmt.Errorf("expected auth_response, got %q", typ)
	}

	ack, err := protocol.DecodeAuthResponse(data)
	if err != nil {
		return err
	}
	if !ack.Success {
		return fmt.Errorf("authentication rejected: %s", ack.ErrorMessage)
	}

	hubCfg := protocol.SessionConfig{}
	if ack.Config != nil {
		hubCfg = *ack.Config
	}
	hubCfg.ApplyDefaults()

	s.hubCfg = hubCfg
	s.sessionID = ack.SessionID

	s.logger.Info("authenticated",
		"sessionId", s.sessionID,
		"depthPushIntervalMs", hubCfg.DepthPushIntervalMs,
		"quoteTimeoutMs", hubCfg.QuoteTimeoutMs,
		"heartbeatIntervalMs", hubCfg.HeartbeatIntervalMs)
	return nil
}

// fail reports the first fatal error; later calls are dropped.
func (s *Session) fail(err error) {
	select {
	case s.errCh <- err:
	default:
	}
}

// stopping reports whether teardown has begun.
func (s *Session) stopping() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

// send serializes a frame and writes it. All writers go through here so
// frames are never partially interleaved.
func (s *Session) send(f protocol.Frame) error {
	data, err := protocol.Encode(f)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	s.logger.Debug("frame sent", "type", string(f.MessageType()))
	return nil
}

// readLoop consumes inbound frames and dispatches them. Each frame is fully
// processed before the next read, which keeps the per-quote response
// ordering trivial.
func (s *Session) readLoop() {
	defer s.wg.Done()

	for {
		if s.stopping() {
			return
		}

		if err := s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
			s.fail(fmt.Errorf("failed to set read deadline: %w", err))
			return
		}

		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if !s.stopping() {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.logger.Info("websocket closed by hub")
				}
				s.fail(fmt.Errorf("websocket read: %w", err))
			}
			return
		}

		s.monitor.Touch()
		s.dispatch(data)
	}
}

// dispatch routes one inbound frame. Parse errors and unknown types are
// logged and do not terminate the session.
func (s *Session) dispatch(data []byte) {
	typ, err := protocol.Sniff(data)
	if err != nil {
		s.logger.Warn("discarding malformed frame", "error", err)
		return
	}

	switch typ {
	case protocol.TypeQuoteRequest:
		s.met.QuotesReceived.Add(1)
		req, err := protocol.DecodeQuoteRequest(data)
		if err != nil {
			s.logger.Error("discarding unparseable quote request", "error", err)
			return
		}
		s.handleQuote(req)

	case protocol.TypeHeartbeat:
		hb, err := protocol.DecodeHeartbeat(data)
		if err != nil {
			s.logger.Warn("discarding unparseable heartbeat", "error", err)
			return
		}
		if hb.Heartbeat.Ping {
			if err := s.send(protocol.NewHeartbeatPong()); err != nil {
				s.fail(fmt.Errorf("send heartbeat pong: %w", err))
			}
		} else if hb.Heartbeat.Pong {
			s.logger.Debug("received pong from hub")
		}

	case protocol.TypeError:
		ef, err := protocol.DecodeError(data)
		if err != nil {
			s.logger.Warn("discarding unparseable error frame", "error", err)
			return
		}
		s.logger.Error("hub reported error",
			"code", ef.Code,
			"message", ef.Message,
			"relatedQuoteId", ef.RelatedQuoteID)

	case protocol.TypeAuthResponse:
		s.logger.Debug("ignoring auth_response outside handshake")

	default:
		s.logger.Debug("unhandled message type", "type", string(typ))
	}
}

// handleQuote prices, signs, and answers one quote request. Exactly one
// frame leaves per quote_id. A response that missed the taker deadline is
// downgraded to a reject rather than sent stale.
func (s *Session) handleQuote(req *protocol.QuoteRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), s.hubCfg.QuoteTimeout())
	defer cancel()

	frame := s.handler.Handle(ctx, req)
	if _, ok := frame.(*protocol.QuoteResponse); ok && time.Now().Unix() > req.Deadline {
		s.logger.Warn("quote deadline passed before send", "quoteId", req.QuoteID)
		frame = protocol.NewQuoteReject(req.QuoteID, protocol.RejectInternalError, "deadline passed before send")
	}

	if err := s.send(frame); err != nil {
		s.fail(fmt.Errorf("send quote reply: %w", err))
		return
	}

	switch frame.(type) {
	case *protocol.QuoteResponse:
		s.met.QuotesResponded.Add(1)
	case *protocol.QuoteReject:
		s.met.QuotesRejected.Add(1)
	}
}

// depthLoop publishes snapshots for every pair at the hub interval, in
// registration order, with a strictly increasing sequence counter.
func (s *Session) depthLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.hubCfg.DepthPushInterval())
	defer ticker.Stop()

	var seq uint64
	if !s.pushAllPairs(&seq) {
		return
	}
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if !s.pushAllPairs(&seq) {
				return
			}
		}
	}
}

func (s *Session) pushAllPairs(seq *uint64) bool {
	for _, pair := range s.registry.Pairs() {
		snap, err := s.builder.Snapshot(pair, *seq)
		if err != nil {
			s.logger.Warn("skipping depth snapshot", "pair", pair.ID(), "error", err)
			continue
		}
		if err := s.send(snap); err != nil {
			if !s.stopping() {
				s.fail(fmt.Errorf("send depth snapshot: %w", err))
			}
			return false
		}
		*seq++
		s.met.DepthPushes.Add(1)
	}
	return true
}

// keepaliveLoop sends pings at the hub interval and tears the session down
// when the hub goes silent past the liveness window.
func (s *Session) keepaliveLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.hubCfg.HeartbeatInterval())
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if s.monitor.Expired() {
				s.fail(fmt.Errorf("no inbound frames for %s", s.monitor.Elapsed().Truncate(time.Second)))
				return
			}
			if err := s.send(protocol.NewHeartbeatPing()); err != nil {
				if !s.stopping() {
					s.fail(fmt.Errorf("send heartbeat ping: %w", err))
				}
				return
			}
		}
	}
}

// shutdown signals the loops, releases the transport, and waits for the
// loops to observe the stop. A signature in flight completes; its send
// fails on the closed transport and is dropped.
func (s *Session) shutdown() {
	s.Stop()

	s.writeMu.Lock()
	_ = s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	_ = s.conn.Close()
	s.writeMu.Unlock()

	s.wg.Wait()
	s.logger.Info("session closed", "sessionId", s.sessionID)
}

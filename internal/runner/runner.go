// Package runner supervises the session lifecycle: it assembles the agent
// from config, runs one session at a time, and reconnects with exponential
// backoff after fatal errors.
package runner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/deluthium/darkpool-mm/internal/config"
	"github.com/deluthium/darkpool-mm/internal/depth"
	"github.com/deluthium/darkpool-mm/internal/metrics"
	"github.com/deluthium/darkpool-mm/internal/quote"
	"github.com/deluthium/darkpool-mm/internal/signer"
	"github.com/deluthium/darkpool-mm/internal/ws"
)

// session is one connection attempt. Satisfied by *ws.Session.
type session interface {
	Run(ctx context.Context) error
}

// Supervisor owns the reconnect loop. Sessions are single-use; every attempt
// constructs a fresh one.
type Supervisor struct {
	logger  *slog.Logger
	met     *metrics.Metrics
	wsCfg   *ws.Config
	backoff *Backoff

	// newSession is swapped out in tests.
	newSession func(logger *slog.Logger, onLive func()) session

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New assembles the agent from config: signing domains, signer, price feed,
// pair registry, pricing engine, and depth builder.
func New(cfg *config.Config, logger *slog.Logger) (*Supervisor, error) {
	if logger == nil {
		logger = slog.Default()
	}

	domains := signer.NewDefaultDomainManager()
	for _, d := range cfg.EIP712Domains {
		domains.AddDomainWithConfig(d.ChainID, d.Name, d.Version, d.VerifyingContract)
	}

	sgn, err := signer.NewFromConfig(&signer.Config{
		PrivateKey:    cfg.Signer.PrivateKey,
		PrivateKeyEnv: cfg.Signer.PrivateKeyEnv,
	}, domains)
	if err != nil {
		return nil, err
	}

	oracle := quote.NewStaticOracle(cfg.Pricing.ParityFallback())
	for _, p := range cfg.Pricing.Prices {
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return nil, err
		}
		oracle.SetPrice(common.HexToAddress(p.BaseToken), common.HexToAddress(p.QuoteToken), price)
	}

	registry := quote.NewRegistry()
	for i := range cfg.Pairs {
		pair, err := cfg.Pairs[i].Pair()
		if err != nil {
			return nil, err
		}
		if err := registry.Add(pair); err != nil {
			return nil, err
		}
	}

	token, err := cfg.WebSocket.Token()
	if err != nil {
		return nil, err
	}
	wsCfg := &ws.Config{
		ServerURL:        cfg.WebSocket.ServerURL,
		APIToken:         token,
		HandshakeTimeout: cfg.WebSocket.HandshakeTimeout,
		ReadTimeout:      cfg.WebSocket.ReadTimeout,
		WriteTimeout:     cfg.WebSocket.WriteTimeout,
	}

	engine := quote.NewEngine(registry, oracle)
	handler := quote.NewHandler(engine, sgn, domains, logger)
	builder := depth.NewBuilder(oracle)
	met := metrics.New()

	logger.Info("agent assembled",
		"signer", sgn.Address().Hex(),
		"pairs", registry.Len(),
		"chains", domains.ChainIDs())

	s := &Supervisor{
		logger:  logger.With("component", "Supervisor"),
		met:     met,
		wsCfg:   wsCfg,
		backoff: NewBackoff(time.Second, 60*time.Second),
	}
	s.newSession = func(lg *slog.Logger, onLive func()) session {
		return ws.NewSession(wsCfg, registry, handler, builder, met, lg, onLive)
	}
	return s, nil
}

// Metrics returns the lifetime counters.
func (s *Supervisor) Metrics() *metrics.Metrics {
	return s.met
}

// Run drives sessions until a clean stop or context cancellation. A session
// that ends with a fatal error is replaced after an exponential backoff
// delay; every successful handshake resets the delay.
func (s *Supervisor) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	for {
		if ctx.Err() != nil {
			return nil
		}

		attemptID := uuid.NewString()
		logger := s.logger.With("attempt", attemptID)
		logger.Info("connecting to hub", "url", s.wsCfg.ServerURL)

		sess := s.newSession(logger, s.backoff.Reset)
		err := sess.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			logger.Info("session stopped cleanly")
			return nil
		}

		s.met.Reconnections.Add(1)
		delay := s.backoff.Next()
		logger.Error("session failed, reconnecting",
			"error", err,
			"delay", delay.String(),
			"reconnections", s.met.Reconnections.Load())

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil
		}
	}
}

// Stop cancels the running loop and the current session.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

package captcha

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/NicholasJacob1990/iudex0-sub012/internal/infrastructure/logging"
	"github.com/NicholasJacob1990/iudex0-sub012/internal/infrastructure/resilience"
	"github.com/NicholasJacob1990/iudex0-sub012/internal/infrastructure/tracing"
	"github.com/NicholasJacob1990/iudex0-sub012/internal/protocol"
	"github.com/NicholasJacob1990/iudex0-sub012/internal/pubsub"
	"github.com/NicholasJacob1990/iudex0-sub012/internal/shared/id"
	"go.uber.org/zap"
)

// requestTimeout bounds a single provider HTTP call.
const requestTimeout = 30 * time.Second

// Outcome labels passed to Recorder.
const (
	outcomeSolved  = "solved"
	outcomeFailed  = "failed"
	outcomeTimeout = "timeout"
)

// Recorder receives one call per finished provider attempt.
type Recorder interface {
	CaptchaAttempt(provider, outcome string, duration time.Duration)
}

// Config selects and tunes the resolution strategy.
type Config struct {
	// Provider is one of 2captcha, anticaptcha, capmonster or manual.
	Provider         string
	APIKey           string
	FallbackToManual bool
	PollInterval     time.Duration
	ProviderTimeout  time.Duration
	ManualTimeout    time.Duration
	// BaseURL overrides the provider endpoint.
	BaseURL    string
	Resilience resilience.Config
	Recorder   Recorder
	// Tracer, if set, receives one span per Solve call.
	Tracer *tracing.Tracer

	logger *logging.Logger
}

// DefaultConfig returns manual resolution with the stock timeouts.
func DefaultConfig() Config {
	return Config{
		Provider:         ProviderManual,
		FallbackToManual: true,
		PollInterval:     5 * time.Second,
		ProviderTimeout:  120 * time.Second,
		ManualTimeout:    300 * time.Second,
		Resilience:       resilience.DefaultConfig(),
	}
}

// attempt states, logged on every transition.
type state string

const (
	stateSubmitting     state = "submitting"
	stateSolved         state = "solved"
	stateProviderFailed state = "provider_failed"
	stateAwaitingManual state = "awaiting_manual"
	stateManualTimeout  state = "manual_timeout"
	stateFailed         state = "failed"
)

// Solver resolves CAPTCHAs with an automated provider first and a human
// second. Attempts run on the caller's goroutine; Close cancels them all.
type Solver struct {
	cfg       Config
	logger    *logging.Logger
	automated Provider // nil for manual-only
	manual    *Manual  // nil without a bus
	recorder  Recorder

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewSolver builds a solver. A nil bus disables manual resolution. A
// missing API key is not an error here; attempts fail with it instead.
func NewSolver(cfg Config, bus pubsub.Bus, logger *logging.Logger) (*Solver, error) {
	defaults := DefaultConfig()
	if cfg.Provider == "" {
		cfg.Provider = defaults.Provider
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaults.PollInterval
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = defaults.ProviderTimeout
	}
	if cfg.ManualTimeout <= 0 {
		cfg.ManualTimeout = defaults.ManualTimeout
	}
	if cfg.Resilience == (resilience.Config{}) {
		cfg.Resilience = defaults.Resilience
	}

	s := &Solver{
		cfg:      cfg,
		logger:   logging.OrNop(logger).Named("captcha"),
		recorder: cfg.Recorder,
	}
	cfg.logger = s.logger

	switch cfg.Provider {
	case ProviderTwoCaptcha:
		s.automated = newTwoCaptcha(cfg)
	case ProviderAntiCaptcha:
		s.automated = newAntiCaptcha(cfg)
	case ProviderCapMonster:
		s.automated = newCapMonster(cfg)
	case ProviderManual:
	default:
		return nil, fmt.Errorf("unknown captcha provider %q", cfg.Provider)
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	if bus != nil {
		manual, err := NewManual(s.ctx, bus, cfg.ManualTimeout, s.logger)
		if err != nil {
			s.cancel()
			return nil, err
		}
		s.manual = manual
	}
	return s, nil
}

// Solve resolves one challenge for a job. It never returns an empty token
// without an error.
func (s *Solver) Solve(ctx context.Context, jobID, userID string, ch protocol.Challenge, portalURL, tribunal string) (sol *Solution, err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSolverClosed
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	if !ch.Type.Supported() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, ch.Type)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	span, ctx := s.cfg.Tracer.StartSpan(ctx, "captcha.solve")
	defer func() {
		if sol != nil {
			span.SetTag("provider", sol.Provider)
		}
		span.SetError(err)
		span.Finish()
		s.cfg.Tracer.Submit(span)
	}()

	req := Request{
		CaptchaID: id.NewCaptchaID().String(),
		JobID:     jobID,
		UserID:    userID,
		Challenge: ch,
		PortalURL: portalURL,
		Tribunal:  tribunal,
	}
	log := s.logger.With(
		zap.String("captcha_id", req.CaptchaID),
		zap.String("job_id", jobID),
		zap.String("type", string(ch.Type)),
	)
	span.SetTag("captcha_id", req.CaptchaID)
	span.SetTag("type", string(ch.Type))

	if s.automated != nil {
		if s.cfg.APIKey == "" {
			log.Error("Provider API key missing", zap.String("provider", s.automated.Name()))
			return nil, missingKey(s.automated.Name())
		}

		log.Info("CAPTCHA attempt", zap.String("state", string(stateSubmitting)), zap.String("provider", s.automated.Name()))
		sol, err = s.attempt(ctx, s.automated, req, s.cfg.ProviderTimeout)
		if err == nil {
			log.Info("CAPTCHA attempt", zap.String("state", string(stateSolved)), zap.Duration("took", sol.Duration))
			return sol, nil
		}
		log.Warn("CAPTCHA attempt", zap.String("state", string(stateProviderFailed)), zap.Error(err))

		if !s.cfg.FallbackToManual || ctx.Err() != nil {
			return nil, err
		}
	}

	if s.manual == nil {
		log.Error("CAPTCHA attempt", zap.String("state", string(stateFailed)), zap.Error(ErrManualNotConfigured))
		return nil, ErrManualNotConfigured
	}

	log.Info("CAPTCHA attempt", zap.String("state", string(stateAwaitingManual)), zap.String("user_id", userID))
	sol, err = s.attempt(ctx, s.manual, req, 0)
	switch {
	case err == nil:
		log.Info("CAPTCHA attempt", zap.String("state", string(stateSolved)), zap.Duration("took", sol.Duration))
		return sol, nil
	case errors.Is(err, ErrManualTimeout):
		log.Warn("CAPTCHA attempt", zap.String("state", string(stateManualTimeout)))
	default:
		log.Warn("CAPTCHA attempt", zap.String("state", string(stateFailed)), zap.Error(err))
	}
	return nil, err
}

// attempt runs one provider, bounded by timeout when positive.
func (s *Solver) attempt(ctx context.Context, p Provider, req Request, timeout time.Duration) (*Solution, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	token, err := p.Solve(ctx, req)
	if err == nil && token == "" {
		err = ErrEmptySolution
	}
	took := time.Since(start)

	if s.recorder != nil {
		s.recorder.CaptchaAttempt(p.Name(), outcomeOf(err), took)
	}
	if err != nil {
		return nil, err
	}
	return &Solution{
		CaptchaID: req.CaptchaID,
		JobID:     req.JobID,
		Token:     token,
		Provider:  p.Name(),
		Duration:  took,
	}, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeSolved
	case errors.Is(err, ErrManualTimeout), errors.Is(err, context.DeadlineExceeded):
		return outcomeTimeout
	default:
		return outcomeFailed
	}
}

// Close cancels in-flight attempts, waits for them to return and stops the
// manual subscription. Safe to call more than once.
func (s *Solver) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()

	if s.manual != nil {
		return s.manual.Close()
	}
	return nil
}

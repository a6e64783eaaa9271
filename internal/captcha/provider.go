package captcha

import (
	"context"
	"time"

	"github.com/NicholasJacob1990/iudex0-sub012/internal/protocol"
)

// Provider names accepted by Config.Provider.
const (
	ProviderTwoCaptcha  = "2captcha"
	ProviderAntiCaptcha = "anticaptcha"
	ProviderCapMonster  = "capmonster"
	ProviderManual      = "manual"
)

// Provider solves one challenge and returns the token or answer text.
// Implementations never return an empty token with a nil error.
type Provider interface {
	Name() string
	Solve(ctx context.Context, req Request) (string, error)
}

// Request is one CAPTCHA attempt as seen by a provider.
type Request struct {
	CaptchaID string
	JobID     string
	UserID    string
	Challenge protocol.Challenge
	PortalURL string
	Tribunal  string
}

// Solution is a solved CAPTCHA.
type Solution struct {
	CaptchaID string
	JobID     string
	Token     string
	Provider  string
	Duration  time.Duration
}

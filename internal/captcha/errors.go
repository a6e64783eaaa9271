package captcha

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedType     = errors.New("unsupported CAPTCHA type")
	ErrManualNotConfigured = errors.New("pub/sub not configured for manual resolution")
	ErrManualTimeout       = errors.New("manual CAPTCHA resolution timed out")
	ErrSolverClosed        = errors.New("captcha solver closed")
	ErrEmptySolution       = errors.New("provider returned an empty solution")
)

// ProviderError is a rejection reported by a solving service, such as an
// invalid key or zero balance. Code and Description are the provider's own
// strings. Rejections are never retried.
type ProviderError struct {
	Provider    string
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("%s: %s", e.Provider, e.Code)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Code, e.Description)
}

// Permanent marks provider rejections as not retryable.
func (e *ProviderError) Permanent() bool { return true }

// statusError is a non-2xx HTTP response. 5xx and 429 are retryable.
type statusError struct {
	provider string
	code     int
	body     string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: unexpected HTTP status %d: %s", e.provider, e.code, e.body)
}

func (e *statusError) Transient() bool {
	return e.code >= 500 || e.code == 429
}

// ManualError carries the failure text of a human resolution attempt,
// for example "no extension connected for user".
type ManualError struct {
	Reason string
}

func (e *ManualError) Error() string {
	return "manual resolution failed: " + e.Reason
}

func missingKey(provider string) error {
	return fmt.Errorf("%s API key not configured", provider)
}

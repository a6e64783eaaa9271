package protocol

import "time"

// CaptchaType identifies the kind of challenge a portal presented
type CaptchaType string

const (
	CaptchaImage       CaptchaType = "image"
	CaptchaRecaptchaV2 CaptchaType = "recaptcha_v2"
	CaptchaRecaptchaV3 CaptchaType = "recaptcha_v3"
	CaptchaHCaptcha    CaptchaType = "hcaptcha"
	CaptchaAudio       CaptchaType = "audio"
	CaptchaText        CaptchaType = "text"
	CaptchaUnknown     CaptchaType = "unknown"
)

// Supported reports whether any resolution path can handle t.
// CaptchaUnknown and unrecognized strings are never supported.
func (t CaptchaType) Supported() bool {
	switch t {
	case CaptchaImage, CaptchaRecaptchaV2, CaptchaRecaptchaV3, CaptchaHCaptcha, CaptchaAudio, CaptchaText:
		return true
	default:
		return false
	}
}

// Challenge is one CAPTCHA as captured from the portal page. Treat it as
// immutable once created.
type Challenge struct {
	Type        CaptchaType `json:"type"`
	ImageBase64 string      `json:"imageBase64,omitempty"`
	SiteKey     string      `json:"siteKey,omitempty"`
	PageURL     string      `json:"pageUrl"`
	// Action and MinScore apply to reCAPTCHA v3 only.
	Action   string  `json:"action,omitempty"`
	MinScore float64 `json:"minScore,omitempty"`
	// Text is the question of a text CAPTCHA.
	Text      string `json:"text,omitempty"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
	ExpiresIn int64  `json:"expiresIn"` // milliseconds
}

// TTL returns ExpiresIn as a duration, zero when unset.
func (c Challenge) TTL() time.Duration {
	if c.ExpiresIn <= 0 {
		return 0
	}
	return time.Duration(c.ExpiresIn) * time.Millisecond
}

// CaptchaKey correlates a request with its solution. Both fields are
// needed: the same job may hit several challenges and the same captcha id
// space is shared across jobs.
type CaptchaKey struct {
	CaptchaID string
	JobID     string
}

// CaptchaRequired asks the user's extension to solve a challenge. Published
// by workers on ChannelCaptchaRequired.
type CaptchaRequired struct {
	CaptchaID string    `json:"captchaId"`
	JobID     string    `json:"jobId"`
	UserID    string    `json:"userId"`
	Challenge Challenge `json:"challenge"`
	PortalURL string    `json:"portalUrl,omitempty"`
	Tribunal  string    `json:"tribunal,omitempty"`
	ExpiresAt int64     `json:"expiresAt,omitempty"` // unix milliseconds
}

// Key returns the correlation key.
func (r CaptchaRequired) Key() CaptchaKey {
	return CaptchaKey{CaptchaID: r.CaptchaID, JobID: r.JobID}
}

// CaptchaSolution answers a CaptchaRequired. Published by the bridge on
// ChannelCaptchaSolution, either relayed from the extension or synthesized
// when no extension could be reached.
type CaptchaSolution struct {
	CaptchaID string `json:"captchaId"`
	JobID     string `json:"jobId"`
	Success   bool   `json:"success"`
	Solution  string `json:"solution,omitempty"`
	Error     string `json:"error,omitempty"`
	UserID    string `json:"userId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

// Key returns the correlation key.
func (s CaptchaSolution) Key() CaptchaKey {
	return CaptchaKey{CaptchaID: s.CaptchaID, JobID: s.JobID}
}

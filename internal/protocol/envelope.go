package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType tags an Envelope
type MessageType string

const (
	TypeCommand  MessageType = "command"
	TypeResponse MessageType = "response"
	TypeEvent    MessageType = "event"
	TypeError    MessageType = "error"
)

// Valid reports whether t is one of the four envelope types.
func (t MessageType) Valid() bool {
	switch t {
	case TypeCommand, TypeResponse, TypeEvent, TypeError:
		return true
	default:
		return false
	}
}

// Actions understood by the bridge or sent by it.
const (
	ActionAuthenticate      = "authenticate"
	ActionSetTribunal       = "set_tribunal"
	ActionLoginComplete     = "login_complete"
	ActionSignatureComplete = "signature_complete"
	ActionCaptchaSolved     = "captcha_solved"
	ActionSolveCaptcha      = "solve_captcha"
)

// AuthRequiredID is the fixed id of the handshake event.
const AuthRequiredID = "auth_required"

var (
	ErrMalformed   = errors.New("invalid message format")
	ErrUnknownType = errors.New("unknown message type")
)

// Envelope is the single wire shape for every extension message. Which
// fields are meaningful depends on Type: Action/Params for command and
// event, Success/Data for response, Error for error.
type Envelope struct {
	Type    MessageType     `json:"type"`
	ID      string          `json:"id"`
	Action  string          `json:"action,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Success *bool           `json:"success,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Decode parses and validates one envelope.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !env.Type.Valid() {
		return env, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	return env, nil
}

// DecodeParams unmarshals Params into v. Missing params decode as an empty object.
func (e Envelope) DecodeParams(v any) error {
	if len(e.Params) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Params, v); err != nil {
		return fmt.Errorf("%w: params: %v", ErrMalformed, err)
	}
	return nil
}

// Succeeded reports the response outcome; error envelopes never succeed.
func (e Envelope) Succeeded() bool {
	return e.Type == TypeResponse && e.Success != nil && *e.Success
}

// NewCommand builds a command envelope.
func NewCommand(id, action string, params any) (Envelope, error) {
	raw, err := marshalRaw(params)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: TypeCommand, ID: id, Action: action, Params: raw}, nil
}

// NewEvent builds an event envelope.
func NewEvent(id, action string, params any) (Envelope, error) {
	raw, err := marshalRaw(params)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: TypeEvent, ID: id, Action: action, Params: raw}, nil
}

// NewResponse builds a successful response envelope.
func NewResponse(id string, data any) (Envelope, error) {
	raw, err := marshalRaw(data)
	if err != nil {
		return Envelope{}, err
	}
	ok := true
	return Envelope{Type: TypeResponse, ID: id, Success: &ok, Data: raw}, nil
}

// NewError builds an error envelope.
func NewError(id, message string) Envelope {
	return Envelope{Type: TypeError, ID: id, Error: message}
}

func marshalRaw(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return raw, nil
}

// AuthenticateParams is the payload of the authenticate command.
type AuthenticateParams struct {
	UserID string `json:"userId"`
}

// AuthRequiredParams is the payload of the handshake event.
type AuthRequiredParams struct {
	SessionID string `json:"sessionId"`
}

// AuthenticatedData is the payload of a successful authenticate response.
type AuthenticatedData struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// SetTribunalParams annotates a session with the portal it is logged into.
type SetTribunalParams struct {
	Tribunal string `json:"tribunal"`
}

// LoginCompleteParams marks the portal login as done.
type LoginCompleteParams struct {
	Tribunal string `json:"tribunal,omitempty"`
}

// SignatureCompleteParams is sent by the extension after a certificate signature.
type SignatureCompleteParams struct {
	JobID string          `json:"jobId,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// CaptchaSolvedParams is sent by the extension once the human solved a challenge.
type CaptchaSolvedParams struct {
	CaptchaID string `json:"captchaId"`
	JobID     string `json:"jobId"`
	Solution  string `json:"solution,omitempty"`
	Success   *bool  `json:"success,omitempty"`
	Error     string `json:"error,omitempty"`
}

package protocol

import "encoding/json"

// Pub/sub channels. Workers publish the *Required channels and the bridge
// publishes the rest.
const (
	ChannelInteractionRequired = "interaction_required"
	ChannelCaptchaRequired     = "captcha_required"
	ChannelOperationResponse   = "operation_response"
	ChannelSignatureComplete   = "signature_complete"
	ChannelCaptchaSolution     = "captcha_solution"
)

// InteractionRequest asks the bridge to deliver Command to one of the
// user's extensions.
type InteractionRequest struct {
	UserID  string   `json:"userId"`
	JobID   string   `json:"jobId,omitempty"`
	Command Envelope `json:"command"`
}

// OperationResponse relays an extension's response or error envelope back
// to the worker that issued the command. ID is the command id.
type OperationResponse struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	SessionID string          `json:"sessionId"`
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// SignatureComplete relays a finished certificate signature.
type SignatureComplete struct {
	JobID     string          `json:"jobId,omitempty"`
	UserID    string          `json:"userId"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data,omitempty"`
}

package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
		want    MessageType
	}{
		{"command", `{"type":"command","id":"1","action":"authenticate","params":{"userId":"u1"}}`, nil, TypeCommand},
		{"response", `{"type":"response","id":"1","success":true}`, nil, TypeResponse},
		{"event", `{"type":"event","id":"e","action":"captcha_solved"}`, nil, TypeEvent},
		{"error", `{"type":"error","id":"1","error":"nope"}`, nil, TypeError},
		{"unknown type", `{"type":"broadcast","id":"1"}`, ErrUnknownType, ""},
		{"missing type", `{"id":"1"}`, ErrUnknownType, ""},
		{"not json", `hello`, ErrMalformed, ""},
		{"wrong shape", `{"type":7}`, ErrMalformed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := Decode([]byte(tt.input))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, env.Type)
		})
	}
}

func TestDecodeParams(t *testing.T) {
	env, err := Decode([]byte(`{"type":"command","id":"1","action":"authenticate","params":{"userId":"u1"}}`))
	require.NoError(t, err)

	var p AuthenticateParams
	require.NoError(t, env.DecodeParams(&p))
	assert.Equal(t, "u1", p.UserID)

	empty := Envelope{Type: TypeCommand}
	require.NoError(t, empty.DecodeParams(&p))

	bad := Envelope{Type: TypeCommand, Params: json.RawMessage(`"str"`)}
	assert.ErrorIs(t, bad.DecodeParams(&p), ErrMalformed)
}

func TestResponseWireShape(t *testing.T) {
	env, err := NewResponse("c1", AuthenticatedData{SessionID: "sess_1", Message: "Authenticated"})
	require.NoError(t, err)

	raw, err := json.Marshal(env)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"type":"response","id":"c1","success":true,"data":{"sessionId":"sess_1","message":"Authenticated"}}`,
		string(raw))
	assert.True(t, env.Succeeded())
}

func TestErrorWireShape(t *testing.T) {
	raw, err := json.Marshal(NewError("c1", "userId is required"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"error","id":"c1","error":"userId is required"}`, string(raw))
	assert.False(t, NewError("c1", "x").Succeeded())
}

func TestHandshakeWireShape(t *testing.T) {
	env, err := NewEvent(AuthRequiredID, ActionAuthenticate, AuthRequiredParams{SessionID: "sess_1"})
	require.NoError(t, err)

	raw, err := json.Marshal(env)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"type":"event","id":"auth_required","action":"authenticate","params":{"sessionId":"sess_1"}}`,
		string(raw))
}

func TestCaptchaTypeSupported(t *testing.T) {
	for _, ct := range []CaptchaType{CaptchaImage, CaptchaRecaptchaV2, CaptchaRecaptchaV3, CaptchaHCaptcha, CaptchaAudio, CaptchaText} {
		assert.True(t, ct.Supported(), ct)
	}
	assert.False(t, CaptchaUnknown.Supported())
	assert.False(t, CaptchaType("funcaptcha").Supported())
}

func TestCaptchaKeyCorrelation(t *testing.T) {
	req := CaptchaRequired{CaptchaID: "cap_1", JobID: "job_1"}
	assert.Equal(t, req.Key(), CaptchaSolution{CaptchaID: "cap_1", JobID: "job_1"}.Key())
	assert.NotEqual(t, req.Key(), CaptchaSolution{CaptchaID: "cap_1", JobID: "job_2"}.Key())
}

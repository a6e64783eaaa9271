package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NicholasJacob1990/iudex0-sub012/internal/protocol"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// HandleMessage processes one raw message from a session. Malformed or
// rejected messages are answered on the same session; the connection is
// never closed here.
func (b *Bridge) HandleMessage(sessionID string, data []byte) {
	s := b.session(sessionID)
	if s == nil {
		b.logger.Debug("Message for unknown session", zap.String("session_id", sessionID))
		return
	}

	if !s.limiter.Allow() {
		b.send(s, protocol.NewError("", "rate limit exceeded"))
		return
	}

	env, err := protocol.Decode(data)
	switch {
	case errors.Is(err, protocol.ErrUnknownType):
		b.send(s, protocol.NewError(env.ID, fmt.Sprintf("unknown message type: %s", env.Type)))
		return
	case err != nil:
		b.logger.Debug("Malformed message", zap.String("session_id", s.ID), zap.Error(err))
		b.send(s, protocol.NewError("", protocol.ErrMalformed.Error()))
		return
	}

	b.observer.MessageReceived(string(env.Type), env.Action)

	b.mu.RLock()
	userID := s.userID
	b.mu.RUnlock()

	if userID == "" && !(env.Type == protocol.TypeCommand && env.Action == protocol.ActionAuthenticate) {
		b.send(s, protocol.NewError(env.ID, "not authenticated"))
		return
	}

	switch env.Type {
	case protocol.TypeCommand:
		b.handleCommand(s, env)
	case protocol.TypeEvent:
		b.handleEvent(s, userID, env)
	case protocol.TypeResponse, protocol.TypeError:
		b.relayResponse(s, userID, env)
	}
}

func (b *Bridge) handleCommand(s *Session, env protocol.Envelope) {
	switch env.Action {
	case protocol.ActionAuthenticate:
		b.authenticate(s, env)
	case protocol.ActionSetTribunal:
		if b.setTribunal(s, env) {
			b.ack(s, env.ID, map[string]string{"message": "tribunal set"})
		}
	case protocol.ActionLoginComplete:
		if b.loginComplete(s, env) {
			b.ack(s, env.ID, map[string]string{"message": "login recorded"})
		}
	default:
		b.unknownAction(s, env)
	}
}

func (b *Bridge) handleEvent(s *Session, userID string, env protocol.Envelope) {
	switch env.Action {
	case protocol.ActionSetTribunal:
		b.setTribunal(s, env)
	case protocol.ActionLoginComplete:
		b.loginComplete(s, env)
	case protocol.ActionSignatureComplete:
		b.signatureComplete(s, userID, env)
	case protocol.ActionCaptchaSolved:
		b.captchaSolved(s, userID, env)
	default:
		b.unknownAction(s, env)
	}
}

func (b *Bridge) unknownAction(s *Session, env protocol.Envelope) {
	b.send(s, protocol.NewError(env.ID, fmt.Sprintf("unknown action: %s", env.Action)))
}

func (b *Bridge) ack(s *Session, id string, data any) {
	resp, err := protocol.NewResponse(id, data)
	if err != nil {
		b.send(s, protocol.NewError(id, err.Error()))
		return
	}
	b.send(s, resp)
}

func (b *Bridge) authenticate(s *Session, env protocol.Envelope) {
	var params protocol.AuthenticateParams
	if err := env.DecodeParams(&params); err != nil || params.UserID == "" {
		b.send(s, protocol.NewError(env.ID, "userId is required"))
		return
	}

	first, ok := b.bind(s, params.UserID)
	if !ok {
		return
	}
	b.observer.SessionAuthenticated(s.ID, params.UserID, first)
	b.logger.Info("Extension authenticated",
		zap.String("session_id", s.ID),
		zap.String("user_id", params.UserID),
	)

	b.ack(s, env.ID, protocol.AuthenticatedData{
		SessionID: s.ID,
		Message:   "authenticated",
	})
}

func (b *Bridge) setTribunal(s *Session, env protocol.Envelope) bool {
	var params protocol.SetTribunalParams
	if err := env.DecodeParams(&params); err != nil || params.Tribunal == "" {
		b.send(s, protocol.NewError(env.ID, "tribunal is required"))
		return false
	}

	b.mu.Lock()
	s.tribunal = params.Tribunal
	b.mu.Unlock()

	b.logger.Debug("Tribunal set", zap.String("session_id", s.ID), zap.String("tribunal", params.Tribunal))
	return true
}

func (b *Bridge) loginComplete(s *Session, env protocol.Envelope) bool {
	var params protocol.LoginCompleteParams
	if err := env.DecodeParams(&params); err != nil {
		b.send(s, protocol.NewError(env.ID, err.Error()))
		return false
	}

	b.mu.Lock()
	s.loginComplete = true
	if params.Tribunal != "" {
		s.tribunal = params.Tribunal
	}
	tribunal := s.tribunal
	b.mu.Unlock()

	b.logger.Info("Portal login complete", zap.String("session_id", s.ID), zap.String("tribunal", tribunal))
	return true
}

func (b *Bridge) signatureComplete(s *Session, userID string, env protocol.Envelope) {
	var params protocol.SignatureCompleteParams
	if err := env.DecodeParams(&params); err != nil {
		b.send(s, protocol.NewError(env.ID, err.Error()))
		return
	}

	b.publish(protocol.ChannelSignatureComplete, protocol.SignatureComplete{
		JobID:     params.JobID,
		UserID:    userID,
		SessionID: s.ID,
		Data:      params.Data,
	})
}

func (b *Bridge) captchaSolved(s *Session, userID string, env protocol.Envelope) {
	var params protocol.CaptchaSolvedParams
	if err := env.DecodeParams(&params); err != nil {
		b.send(s, protocol.NewError(env.ID, err.Error()))
		return
	}
	if params.CaptchaID == "" || params.JobID == "" {
		b.send(s, protocol.NewError(env.ID, "captchaId and jobId are required"))
		return
	}

	// An explicit success flag wins; otherwise a non-empty solution is success.
	success := params.Solution != ""
	if params.Success != nil {
		success = *params.Success && params.Solution != ""
	}
	errText := params.Error
	if !success && errText == "" {
		errText = "captcha not solved"
	}

	b.publish(protocol.ChannelCaptchaSolution, protocol.CaptchaSolution{
		CaptchaID: params.CaptchaID,
		JobID:     params.JobID,
		Success:   success,
		Solution:  params.Solution,
		Error:     errText,
		UserID:    userID,
		SessionID: s.ID,
	})
}

func (b *Bridge) relayResponse(s *Session, userID string, env protocol.Envelope) {
	b.publish(protocol.ChannelOperationResponse, protocol.OperationResponse{
		ID:        env.ID,
		UserID:    userID,
		SessionID: s.ID,
		Success:   env.Succeeded(),
		Data:      env.Data,
		Error:     env.Error,
	})
}

func (b *Bridge) publish(channel string, payload any) {
	if b.bus == nil {
		b.logger.Warn("No pub/sub bus configured, dropping message", zap.String("channel", channel))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := b.bus.Publish(ctx, channel, payload); err != nil {
		b.logger.Error("Publish failed", zap.String("channel", channel), zap.Error(err))
	}
}

package bridge

import (
	"context"

	"github.com/NicholasJacob1990/iudex0-sub012/internal/protocol"
	"github.com/NicholasJacob1990/iudex0-sub012/internal/pubsub"
	"go.uber.org/zap"
)

// noExtensionError is published back to the worker when a CAPTCHA could
// not be routed to any session.
const noExtensionError = "no extension connected for user"

func (b *Bridge) onInteractionRequired(_ context.Context, payload []byte) {
	var req protocol.InteractionRequest
	if err := pubsub.Decode(payload, &req); err != nil {
		b.logger.Warn("Invalid interaction request", zap.Error(err))
		return
	}
	if req.UserID == "" || !req.Command.Type.Valid() {
		b.logger.Warn("Interaction request missing user or command",
			zap.String("user_id", req.UserID),
			zap.String("job_id", req.JobID),
		)
		return
	}

	if !b.SendToUser(req.UserID, req.Command) {
		b.observer.DeliveryFailed(protocol.ChannelInteractionRequired, req.UserID)
		b.logger.Warn("No extension connected for interaction",
			zap.String("user_id", req.UserID),
			zap.String("job_id", req.JobID),
			zap.String("action", req.Command.Action),
		)
	}
}

func (b *Bridge) onCaptchaRequired(ctx context.Context, payload []byte) {
	var req protocol.CaptchaRequired
	if err := pubsub.Decode(payload, &req); err != nil {
		b.logger.Warn("Invalid captcha request", zap.Error(err))
		return
	}

	log := b.logger.With(
		zap.String("captcha_id", req.CaptchaID),
		zap.String("job_id", req.JobID),
		zap.String("user_id", req.UserID),
	)

	cmd, err := protocol.NewCommand(req.CaptchaID, protocol.ActionSolveCaptcha, req)
	if err == nil && req.UserID != "" && b.SendToUser(req.UserID, cmd) {
		log.Info("CAPTCHA routed to extension")
		return
	}

	b.observer.DeliveryFailed(protocol.ChannelCaptchaRequired, req.UserID)
	log.Warn("No extension connected for CAPTCHA")

	if b.bus == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	failure := protocol.CaptchaSolution{
		CaptchaID: req.CaptchaID,
		JobID:     req.JobID,
		UserID:    req.UserID,
		Success:   false,
		Error:     noExtensionError,
	}
	if err := b.bus.Publish(pubCtx, protocol.ChannelCaptchaSolution, failure); err != nil {
		log.Error("Publish CAPTCHA failure", zap.Error(err))
	}
}

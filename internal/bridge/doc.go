// Package bridge keeps live connections to users' browser extensions and
// routes messages between them and the background workers.
//
// Each WebSocket connection becomes a Session. A session starts
// unauthenticated and may only send the authenticate command; once bound
// to a user it is indexed under that user and becomes a delivery target
// for SendToUser.
//
// Workers never talk to sessions directly. They publish on the pub/sub
// bus:
//   - interaction_required: deliver a command to one of the user's extensions
//   - captcha_required: ask the user to solve a CAPTCHA
//
// and the bridge republishes what extensions send back:
//   - operation_response: response or error envelopes
//   - signature_complete: finished certificate signatures
//   - captcha_solution: solved (or failed) CAPTCHAs
//
// Delivery is first-available: exactly one session receives a message,
// chosen in connect order. Nothing is queued for users with no open
// session.
//
// Example Usage:
//
//	b := bridge.New(bus, logger, bridge.Options{Observer: metrics})
//	if err := b.Start(ctx); err != nil {
//		return err
//	}
//	router.GET("/ws", b.HandleConnection)
//	defer b.Shutdown(context.Background())
package bridge

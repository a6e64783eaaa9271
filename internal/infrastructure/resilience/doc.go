/*
Package resilience holds the stateless policies every network and DOM
operation of the bridge, the CAPTCHA engine and the portal automation
scripts share.

# Classification

ClassifyError maps an error to transient, selector_not_found or permanent.
Typed checks (context deadlines, net timeouts, PermanentError markers) run
first, then a case-insensitive substring match on the message. Anything
unrecognized is permanent and is therefore never retried.

# Fail-fast

FailFast races an operation against a timer. Losing the race abandons the
wait and cancels the operation's context; the operation itself may keep
running until it notices.

# Retry

WithRetry performs up to MaxRetries+1 attempts, stops on the first error
whose kind is not in RetryOn, and sleeps Backoff*2^attempt ±20% between
attempts. The returned error is always the operation's own error.

	token, err := resilience.WithRetry(ctx, submit, resilience.RetryOptions{
		MaxRetries: 2,
		Backoff:    500 * time.Millisecond,
	})

# Circuit breaker

Breaker trips after consecutive transient failures against one endpoint:

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
*/
package resilience

// Package captcha resolves CAPTCHAs met by portal automation jobs.
//
// A Solver tries one automated provider (2captcha, Anti-Captcha or
// CapMonster) and, when that fails and fallback is enabled, routes the
// challenge to the user's browser extension over the pub/sub bus:
//
//	worker --captcha_required--> bridge --solve_captcha--> extension
//	worker <--captcha_solution-- bridge <--captcha_solved-- extension
//
// Solutions are correlated by (captchaId, jobId). A solution that arrives
// after its attempt gave up is discarded.
//
// Provider rejections (bad key, zero balance, unsolvable) are returned as
// *ProviderError with the provider's own code and are not retried. Network
// failures and 5xx replies of single HTTP calls are retried with backoff.
package captcha

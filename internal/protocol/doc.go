// Package protocol defines the wire types shared by the extension bridge,
// the CAPTCHA engine and job workers.
//
// Extension traffic is a JSON envelope tagged by "type":
//
//	{"type":"command","id":"c1","action":"authenticate","params":{"userId":"u1"}}
//	{"type":"response","id":"c1","success":true,"data":{"sessionId":"sess_…"}}
//	{"type":"event","id":"e1","action":"captcha_solved","params":{…}}
//	{"type":"error","id":"c1","error":"userId is required"}
//
// Decode rejects any other type. Pub/sub payloads (CaptchaRequired,
// CaptchaSolution, InteractionRequest, OperationResponse, SignatureComplete)
// travel on the channels named by the Channel* constants.
package protocol

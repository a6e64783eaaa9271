package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/NicholasJacob1990/iudex0-sub012/internal/protocol"
	"github.com/go-resty/resty/v2"
)

const (
	twoCaptchaBaseURL  = "https://2captcha.com"
	twoCaptchaNotReady = "CAPCHA_NOT_READY"
)

// TwoCaptcha talks to the 2captcha in.php/res.php API.
type TwoCaptcha struct {
	apiKey       string
	pollInterval time.Duration
	http         *client
}

// twoCaptchaReply is the json=1 envelope of both endpoints.
type twoCaptchaReply struct {
	Status    int    `json:"status"`
	Request   string `json:"request"`
	ErrorText string `json:"error_text"`
}

func newTwoCaptcha(cfg Config) *TwoCaptcha {
	base := cfg.BaseURL
	if base == "" {
		base = twoCaptchaBaseURL
	}
	return &TwoCaptcha{
		apiKey:       cfg.APIKey,
		pollInterval: cfg.PollInterval,
		http:         newClient(ProviderTwoCaptcha, base, requestTimeout, cfg.Resilience, cfg.logger),
	}
}

func (p *TwoCaptcha) Name() string { return ProviderTwoCaptcha }

func (p *TwoCaptcha) Solve(ctx context.Context, req Request) (string, error) {
	if p.apiKey == "" {
		return "", missingKey(p.Name())
	}
	form, err := p.submitForm(req)
	if err != nil {
		return "", err
	}

	reply, err := p.call(ctx, p.http.submit, func(r *resty.Request) (*resty.Response, error) {
		return r.SetFormData(form).Post("/in.php")
	})
	if err != nil {
		return "", err
	}
	if reply.Status != 1 {
		return "", p.rejection(reply)
	}
	taskID := reply.Request

	for {
		if err := sleep(ctx, p.pollInterval); err != nil {
			return "", err
		}
		reply, err := p.call(ctx, p.http.do, func(r *resty.Request) (*resty.Response, error) {
			return r.SetQueryParams(map[string]string{
				"key":    p.apiKey,
				"action": "get",
				"id":     taskID,
				"json":   "1",
			}).Get("/res.php")
		})
		if err != nil {
			return "", err
		}
		switch {
		case reply.Status == 1 && reply.Request != "":
			return reply.Request, nil
		case reply.Status == 1:
			return "", ErrEmptySolution
		case reply.Request == twoCaptchaNotReady:
			continue
		default:
			return "", p.rejection(reply)
		}
	}
}

// submitForm builds the in.php payload for the challenge type.
func (p *TwoCaptcha) submitForm(req Request) (map[string]string, error) {
	ch := req.Challenge
	form := map[string]string{
		"key":  p.apiKey,
		"json": "1",
	}

	switch ch.Type {
	case protocol.CaptchaImage:
		body, err := imageBody(p.Name(), ch.ImageBase64)
		if err != nil {
			return nil, err
		}
		form["method"] = "base64"
		form["body"] = body
	case protocol.CaptchaRecaptchaV2:
		form["method"] = "userrecaptcha"
		form["googlekey"] = ch.SiteKey
		form["pageurl"] = pageURL(req)
	case protocol.CaptchaRecaptchaV3:
		form["method"] = "userrecaptcha"
		form["version"] = "v3"
		form["googlekey"] = ch.SiteKey
		form["pageurl"] = pageURL(req)
		if ch.Action != "" {
			form["action"] = ch.Action
		}
		if ch.MinScore > 0 {
			form["min_score"] = strconv.FormatFloat(ch.MinScore, 'f', 1, 64)
		}
	case protocol.CaptchaHCaptcha:
		form["method"] = "hcaptcha"
		form["sitekey"] = ch.SiteKey
		form["pageurl"] = pageURL(req)
	case protocol.CaptchaText:
		form["textcaptcha"] = ch.Text
	default:
		return nil, &ProviderError{Provider: p.Name(), Code: "UNSUPPORTED_TYPE", Description: string(ch.Type)}
	}
	return form, nil
}

func (p *TwoCaptcha) call(ctx context.Context, send sender, build func(*resty.Request) (*resty.Response, error)) (twoCaptchaReply, error) {
	body, err := send(ctx, build)
	if err != nil {
		return twoCaptchaReply{}, err
	}
	var reply twoCaptchaReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return twoCaptchaReply{}, fmt.Errorf("%s: decode reply: %w", p.Name(), err)
	}
	return reply, nil
}

func (p *TwoCaptcha) rejection(reply twoCaptchaReply) error {
	return &ProviderError{Provider: p.Name(), Code: reply.Request, Description: reply.ErrorText}
}

// pageURL prefers the URL captured with the challenge.
func pageURL(req Request) string {
	if req.Challenge.PageURL != "" {
		return req.Challenge.PageURL
	}
	return req.PortalURL
}

package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/NicholasJacob1990/iudex0-sub012/internal/protocol"
	"github.com/go-resty/resty/v2"
)

const (
	antiCaptchaBaseURL = "https://api.anti-captcha.com"
	capMonsterBaseURL  = "https://api.capmonster.cloud"
)

// TaskAPI implements the createTask/getTaskResult protocol spoken by both
// Anti-Captcha and CapMonster Cloud.
type TaskAPI struct {
	name         string
	apiKey       string
	pollInterval time.Duration
	http         *client
}

type taskEnvelope struct {
	ErrorID          int             `json:"errorId"`
	ErrorCode        string          `json:"errorCode"`
	ErrorDescription string          `json:"errorDescription"`
	TaskID           int64           `json:"taskId"`
	Status           string          `json:"status"`
	Solution         json.RawMessage `json:"solution"`
}

type taskSolution struct {
	Text               string `json:"text"`
	GRecaptchaResponse string `json:"gRecaptchaResponse"`
	Token              string `json:"token"`
}

func (s taskSolution) value() string {
	switch {
	case s.GRecaptchaResponse != "":
		return s.GRecaptchaResponse
	case s.Token != "":
		return s.Token
	default:
		return s.Text
	}
}

func newAntiCaptcha(cfg Config) *TaskAPI {
	return newTaskAPI(ProviderAntiCaptcha, antiCaptchaBaseURL, cfg)
}

func newCapMonster(cfg Config) *TaskAPI {
	return newTaskAPI(ProviderCapMonster, capMonsterBaseURL, cfg)
}

func newTaskAPI(name, defaultBase string, cfg Config) *TaskAPI {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBase
	}
	return &TaskAPI{
		name:         name,
		apiKey:       cfg.APIKey,
		pollInterval: cfg.PollInterval,
		http:         newClient(name, base, requestTimeout, cfg.Resilience, cfg.logger),
	}
}

func (p *TaskAPI) Name() string { return p.name }

func (p *TaskAPI) Solve(ctx context.Context, req Request) (string, error) {
	if p.apiKey == "" {
		return "", missingKey(p.name)
	}
	task, err := p.task(req)
	if err != nil {
		return "", err
	}

	created, err := p.call(ctx, p.http.submit, "/createTask", map[string]any{
		"clientKey": p.apiKey,
		"task":      task,
	})
	if err != nil {
		return "", err
	}

	for {
		if err := sleep(ctx, p.pollInterval); err != nil {
			return "", err
		}
		result, err := p.call(ctx, p.http.do, "/getTaskResult", map[string]any{
			"clientKey": p.apiKey,
			"taskId":    created.TaskID,
		})
		if err != nil {
			return "", err
		}
		if result.Status != "ready" {
			continue
		}

		var sol taskSolution
		if err := json.Unmarshal(result.Solution, &sol); err != nil {
			return "", fmt.Errorf("%s: decode solution: %w", p.name, err)
		}
		if sol.value() == "" {
			return "", ErrEmptySolution
		}
		return sol.value(), nil
	}
}

// task builds the provider task object for the challenge type.
func (p *TaskAPI) task(req Request) (map[string]any, error) {
	ch := req.Challenge
	switch ch.Type {
	case protocol.CaptchaImage:
		body, err := imageBody(p.name, ch.ImageBase64)
		if err != nil {
			return nil, err
		}
		return map[string]any{"type": "ImageToTextTask", "body": body}, nil
	case protocol.CaptchaRecaptchaV2:
		return map[string]any{
			"type":       "RecaptchaV2TaskProxyless",
			"websiteURL": pageURL(req),
			"websiteKey": ch.SiteKey,
		}, nil
	case protocol.CaptchaRecaptchaV3:
		task := map[string]any{
			"type":       "RecaptchaV3TaskProxyless",
			"websiteURL": pageURL(req),
			"websiteKey": ch.SiteKey,
			"minScore":   0.3,
		}
		if ch.MinScore > 0 {
			task["minScore"] = ch.MinScore
		}
		if ch.Action != "" {
			task["pageAction"] = ch.Action
		}
		return task, nil
	case protocol.CaptchaHCaptcha:
		return map[string]any{
			"type":       "HCaptchaTaskProxyless",
			"websiteURL": pageURL(req),
			"websiteKey": ch.SiteKey,
		}, nil
	default:
		return nil, &ProviderError{Provider: p.name, Code: "UNSUPPORTED_TYPE", Description: string(ch.Type)}
	}
}

func (p *TaskAPI) call(ctx context.Context, send sender, path string, payload map[string]any) (taskEnvelope, error) {
	body, err := send(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetHeader("Content-Type", "application/json").SetBody(payload).Post(path)
	})
	if err != nil {
		return taskEnvelope{}, err
	}

	var env taskEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return taskEnvelope{}, fmt.Errorf("%s: decode reply: %w", p.name, err)
	}
	if env.ErrorID != 0 {
		return taskEnvelope{}, &ProviderError{Provider: p.name, Code: env.ErrorCode, Description: env.ErrorDescription}
	}
	return env, nil
}

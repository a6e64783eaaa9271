package main

import (
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/NicholasJacob1990/iudex0-sub012/internal/captcha"
	"github.com/NicholasJacob1990/iudex0-sub012/internal/infrastructure/resilience"
	"github.com/NicholasJacob1990/iudex0-sub012/internal/protocol"
)

// newSolveCmd sends one challenge to the configured automated provider.
// Useful to check an API key without a running bridge; manual fallback is
// unavailable here since no extension can be reached.
func newSolveCmd(flags *globalFlags) *cobra.Command {
	var (
		kind     string
		siteKey  string
		pageURL  string
		action   string
		minScore float64
	)

	cmd := &cobra.Command{
		Use:   "solve [image-file]",
		Short: "Solve a single CAPTCHA with the configured provider",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(flags)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ch := protocol.Challenge{
				Type:      protocol.CaptchaType(kind),
				SiteKey:   siteKey,
				PageURL:   pageURL,
				Action:    action,
				MinScore:  minScore,
				Timestamp: time.Now().UnixMilli(),
			}
			if ch.Type == protocol.CaptchaImage {
				if len(args) == 0 {
					return fmt.Errorf("image captcha needs an image file")
				}
				raw, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				ch.ImageBase64 = base64.StdEncoding.EncodeToString(raw)
			}

			solver, err := captcha.NewSolver(captcha.Config{
				Provider:        cfg.Captcha.Provider,
				APIKey:          cfg.Captcha.APIKey,
				PollInterval:    cfg.Captcha.PollInterval,
				ProviderTimeout: cfg.Captcha.ProviderTimeout,
				BaseURL:         cfg.Captcha.BaseURL,
				Resilience: resilience.Config{
					FailFastTimeout: cfg.Resilience.FailFastTimeout,
					MaxRetries:      cfg.Resilience.MaxRetries,
					RetryBackoff:    cfg.Resilience.RetryBackoff,
				},
			}, nil, logger)
			if err != nil {
				return err
			}
			defer func() { _ = solver.Close() }()

			sol, err := solver.Solve(cmd.Context(), "cli", "", ch, pageURL, "")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", sol.Provider, sol.Duration.Round(time.Millisecond), sol.Token)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "type", string(protocol.CaptchaImage), "captcha type (image, recaptcha_v2, recaptcha_v3, hcaptcha, text)")
	cmd.Flags().StringVar(&siteKey, "site-key", "", "site key for token captchas")
	cmd.Flags().StringVar(&pageURL, "page-url", "", "page the captcha was served on")
	cmd.Flags().StringVar(&action, "action", "", "reCAPTCHA v3 action")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "reCAPTCHA v3 minimum score")
	return cmd
}

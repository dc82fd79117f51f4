package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sentinelvnc/sentinel/common/middleware"
)

func newTokenCmd(a *app) *cobra.Command {
	var service, secret string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a service JWT",
		Long: `Sign a short-lived HS256 token identifying a service. Services accept it
as "Authorization: Bearer <token>" in place of the X-API-Key header.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = a.cfg.TokenSecret
			}
			if secret == "" {
				return fmt.Errorf("no signing secret: pass --secret or set token_secret")
			}
			if ttl <= 0 {
				return fmt.Errorf("--ttl must be positive")
			}

			token, err := middleware.MintServiceToken(secret, service, ttl)
			if err != nil {
				return fmt.Errorf("failed to mint token: %w", err)
			}

			p := a.printer(cmd)
			if p.Structured() {
				return p.Data(map[string]interface{}{
					"token":      token,
					"service":    service,
					"expires_at": time.Now().Add(ttl).UTC().Format(time.RFC3339),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&service, "service", "sentinelctl", "service name placed in the token")
	cmd.Flags().StringVar(&secret, "secret", "", "HMAC signing secret (default: token_secret from config)")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

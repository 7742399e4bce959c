package cli

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in once and print the session",
	Long: `Perform the login handshake with TESTER_EMAIL and TESTER_PASSWORD and
print the resulting identity. Use it to check credentials before a run.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := setup(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		a, err := newApp(s.cfg, s.log)
		if err != nil {
			return err
		}
		defer a.Close()

		session, err := a.auth.Acquire(cmd.Context())
		if err != nil {
			s.printer.Error("login failed: %v", err)
			return err
		}

		s.printer.Success("logged in as %s", s.cfg.Credentials.Email)
		s.printer.Print("  user id: %s", session.Identity)
		s.printer.Print("  token:   %s", maskToken(session.Token))
		if !session.ExpiresAt.IsZero() {
			s.printer.Print("  expires: %s %s", session.ExpiresAt.Format(time.RFC3339),
				s.printer.Dim("(in "+time.Until(session.ExpiresAt).Round(time.Second).String()+")"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
}

// maskToken keeps just enough of a token to tell two apart.
func maskToken(token string) string {
	if len(token) <= 12 {
		return strings.Repeat("*", len(token))
	}
	return token[:6] + "…" + token[len(token)-4:]
}

package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yangguang01/vibesub/internal/auth"
)

func init() {
	tokenCmd.Flags().StringVar(&tokenClient, "client", "extension", "Name of the client the token is issued to")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Token lifetime (0 means no expiry)")
	rootCmd.AddCommand(tokenCmd)
}

var (
	tokenClient string
	tokenTTL    time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the local API",
	Long: `Issue a bearer token signed with the configured JWT secret. Set
JWT_SECRET (or server.jwt_secret) first, otherwise the token is only valid
for a server started with the same randomly generated secret.`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func runToken(cmd *cobra.Command, args []string) error {
	if tokenClient == "" {
		return fmt.Errorf("--client must not be empty")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tok, err := auth.NewJWTService(cfg.Server.JWTSecret).GenerateToken(tokenClient, tokenTTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tok)
	return nil
}

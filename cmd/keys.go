package cmd

import (
	"encoding/base64"
	"fmt"

	"github.com/gorilla/securecookie"
	"github.com/spf13/cobra"

	"github.com/example/cafebook/internal/config"
)

func newKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "Generate cookie_hash_key and cookie_block_key values (base64) for the web UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			hash := securecookie.GenerateRandomKey(32)
			block := securecookie.GenerateRandomKey(32)
			if hash == nil || block == nil {
				return fmt.Errorf("generate keys: random source failed")
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "export %s_COOKIE_HASH_KEY=%s\n", config.EnvPrefix, base64.StdEncoding.EncodeToString(hash))
			fmt.Fprintf(out, "export %s_COOKIE_BLOCK_KEY=%s\n", config.EnvPrefix, base64.StdEncoding.EncodeToString(block))
			return nil
		},
	}
}

package cmd

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newKeysCmd() *cobra.Command {
	var export bool

	c := &cobra.Command{
		Use:   "keys",
		Short: "Generate fresh COOKIE_HASH_KEY and COOKIE_BLOCK_KEY values",
		Long: "Generates a random base64 pair for the admin session cookies.\n" +
			"Paste the output into .env, or store each value in a file and point\n" +
			"the variable at its path.",
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if export {
				prefix = "export "
			}
			for _, name := range []string{"COOKIE_HASH_KEY", "COOKIE_BLOCK_KEY"} {
				key := make([]byte, 32)
				if _, err := rand.Read(key); err != nil {
					return err
				}
				fmt.Fprintf(os.Stdout, "%s%s=%s\n", prefix, name, base64.StdEncoding.EncodeToString(key))
			}
			return nil
		},
	}

	c.Flags().BoolVar(&export, "export", false, "prefix each line with `export` for shell sourcing")
	return c
}

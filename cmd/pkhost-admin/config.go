// SPDX-License-Identifier: LGPL-3.0-or-later

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pubky-x-project/pkhost/config"
)

var configValidateCmd = &cobra.Command{
	Use:   "config-validate",
	Short: "Load and validate a config file, printing every finding",
	Long: `Load configuration and print every validation finding. Without
--config, the file cascade, env var substitution and PKHOST_* overrides
are applied; with --config, only that file is read (defaults filled in,
no env var substitution, no PKHOST_* overrides). Exits non-zero if any finding is an error, matching
the homeserver's own exit-code-1 startup convention.`,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configValidateCmd)
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	var cfg *config.Config
	var err error
	if cfgPath != "" {
		cfg, err = config.LoadFromFile(cfgPath)
	} else {
		opts := config.DefaultLoaderOptions()
		opts.SkipValidation = true
		cfg, err = config.Load(opts)
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	findings := config.ValidateConfiguration(cfg)
	if len(findings) == 0 {
		fmt.Println("No findings.")
		return nil
	}

	hasError := false
	for _, f := range findings {
		fmt.Println(f.String())
		if f.Level == config.LevelError {
			hasError = true
		}
	}

	if hasError {
		return fmt.Errorf("configuration has errors")
	}
	return nil
}

// SPDX-License-Identifier: LGPL-3.0-or-later

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pubky-x-project/pkhost/crypto"
)

var (
	genStorageDir string
	genForce      bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new Ed25519 keypair and write its seed to storage_dir/keypair",
	Long: `Generate a new Ed25519 keypair and write the 32-byte signing seed to
<storage-dir>/keypair with 0600 permissions, the layout the homeserver
reads its own identity from at startup.`,
	Example: `  pkhost-keygen generate --storage-dir ./data`,
	RunE:    runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVarP(&genStorageDir, "storage-dir", "d", "", "Storage directory to write keypair into (required)")
	generateCmd.Flags().BoolVarP(&genForce, "force", "f", false, "Overwrite an existing keypair file")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if genStorageDir == "" {
		return fmt.Errorf("--storage-dir is required")
	}

	path := filepath.Join(genStorageDir, "keypair")
	if !genForce {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists; pass --force to overwrite", path)
		}
	}

	kp, err := crypto.GenerateKeypair()
	if err != nil {
		return fmt.Errorf("generate keypair: %w", err)
	}

	if err := os.MkdirAll(genStorageDir, 0o700); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}

	seed := kp.Seed()
	if err := os.WriteFile(path, seed[:], 0o600); err != nil {
		return fmt.Errorf("write keypair file: %w", err)
	}

	fmt.Printf("Keypair written to %s\n", path)
	fmt.Printf("Public key (z-base-32): %s\n", kp.Public().String())
	return nil
}

// SPDX-License-Identifier: LGPL-3.0-or-later

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pubky-x-project/pkhost/crypto"
)

var inspectStorageDir string

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the public key derived from storage_dir/keypair",
	Example: `  pkhost-keygen inspect --storage-dir ./data`,
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVarP(&inspectStorageDir, "storage-dir", "d", "", "Storage directory containing the keypair file (required)")
}

func runInspect(cmd *cobra.Command, args []string) error {
	if inspectStorageDir == "" {
		return fmt.Errorf("--storage-dir is required")
	}

	path := filepath.Join(inspectStorageDir, "keypair")
	seed, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read keypair file: %w", err)
	}

	kp, err := crypto.KeypairFromSeed(seed)
	if err != nil {
		return fmt.Errorf("parse keypair seed: %w", err)
	}

	fmt.Printf("Public key (z-base-32): %s\n", kp.Public().String())
	return nil
}

// SPDX-License-Identifier: LGPL-3.0-or-later

package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pubky-x-project/pkhost/store"
)

var signupCodeCmd = &cobra.Command{
	Use:   "signup-code",
	Short: "Manage signup codes for signup_mode: token_required",
}

var signupCodeIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Mint a fresh, unconsumed signup code and print it as hex",
	RunE:  runSignupCodeIssue,
}

func init() {
	rootCmd.AddCommand(signupCodeCmd)
	signupCodeCmd.AddCommand(signupCodeIssueCmd)
}

func runSignupCodeIssue(cmd *cobra.Command, args []string) error {
	st, err := openStoreFromConfig(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	var id [32]byte
	if _, err := rand.Read(id[:]); err != nil {
		return fmt.Errorf("generate signup code: %w", err)
	}

	code := &store.SignupCode{ID: id, CreatedAt: time.Now()}
	if err := st.CreateSignupCode(context.Background(), code); err != nil {
		return fmt.Errorf("store signup code: %w", err)
	}

	fmt.Println(hex.EncodeToString(id[:]))
	return nil
}

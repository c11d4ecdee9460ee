package main

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/subsystem"
)

var rotateKeyCmd = &cobra.Command{
	Use:   "rotate-key",
	Short: "Replace the encryption key",
	Long: `Generates a new encryption key, stores it under the configured account
and records the rotation in the audit trail. Records sealed with the
previous key cannot be decrypted afterwards.`,
	RunE: runRotateKey,
}

func init() {
	rootCmd.AddCommand(rotateKeyCmd)
}

func runRotateKey(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := subsystem.Open(ctx, cfg, nil, log.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = s.Shutdown(context.Background()) }()

	prev, err := s.Encryption.GetOrCreateKey(ctx)
	if err != nil {
		return err
	}
	next, err := s.RotateKey(ctx)
	if err != nil {
		return err
	}
	printf(cmd, "rotated %s -> %s (version %d)\n", prev.Fingerprint, next.Fingerprint, next.Version)
	return nil
}

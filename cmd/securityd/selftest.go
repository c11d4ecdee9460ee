package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/subsystem"
)

var errSelfTestFailed = errors.New("self test failed")

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Check the key, the audit chain and the KMS provider",
	RunE:  runSelfTest,
}

func init() {
	rootCmd.AddCommand(selftestCmd)
}

func runSelfTest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := subsystem.Open(ctx, cfg, nil, log.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = s.Shutdown(context.Background()) }()

	if err := s.Start(ctx); err != nil {
		return err
	}

	failed := false
	status := s.Encryption.Status()
	printf(cmd, "key:        version %d, %s, fingerprint %s\n", status.Version, status.Algorithm, status.Fingerprint)

	if s.Encryption.ValidateIntegrity(ctx) {
		printf(cmd, "integrity:  ok\n")
	} else {
		printf(cmd, "integrity:  FAILED\n")
		failed = true
	}

	report, err := s.VerifyAuditTrail(ctx)
	switch {
	case errors.Is(err, subsystem.ErrNoAuditReader):
		printf(cmd, "audit:      not persisted\n")
	case err != nil:
		printf(cmd, "audit:      FAILED (%v)\n", err)
		failed = true
	case report.OK:
		printf(cmd, "audit:      ok, %d records, head %d\n", report.Total, report.LastIndex)
	default:
		printf(cmd, "audit:      BROKEN at %d\n", report.BrokenIndex)
		for _, e := range report.Errors {
			printf(cmd, "            %s\n", e)
		}
		failed = true
	}

	if cfg.Encryption.KMS.Type != "" {
		provider, err := subsystem.OpenKMS(ctx, cfg.Encryption)
		if err == nil {
			err = provider.HealthCheck(ctx)
		}
		if err != nil {
			printf(cmd, "kms:        FAILED (%v)\n", err)
			failed = true
		} else {
			printf(cmd, "kms:        ok (%s)\n", cfg.Encryption.KMS.Type)
		}
	}

	if failed {
		return errSelfTestFailed
	}
	fmt.Fprintln(cmd.OutOrStdout(), "all checks passed")
	return nil
}

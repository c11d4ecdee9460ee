package main

import (
	"bufio"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/kms/credentials/symmetric"
)

var errNoBootstrapKey = errors.New("no bootstrap key: set encryption.bootstrap_key or SECURITYD_ENCRYPTION_BOOTSTRAP_KEY")

var sealCredentialCmd = &cobra.Command{
	Use:   "seal-credential [value]",
	Short: "Seal a KMS credential with the bootstrap key",
	Long: `Prints value sealed as ENC[...] for use in the encryption.kms block.
Without an argument the value is read from the first line of stdin.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSealCredential,
}

func init() {
	rootCmd.AddCommand(sealCredentialCmd)
}

func runSealCredential(cmd *cobra.Command, args []string) error {
	if cfg.Encryption.BootstrapKey == "" {
		return errNoBootstrapKey
	}
	key, err := base64.StdEncoding.DecodeString(cfg.Encryption.BootstrapKey)
	if err != nil {
		return fmt.Errorf("failed to decode bootstrap key: %w", err)
	}
	enc, err := symmetric.NewEncryption(key)
	if err != nil {
		return err
	}

	var value string
	if len(args) == 1 {
		value = args[0]
	} else {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read value from stdin: %w", err)
		}
		value = strings.TrimRight(line, "\r\n")
	}

	sealed, err := enc.Encrypt(value)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), sealed)
	return nil
}

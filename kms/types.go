package kms

import (
	"errors"

	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/types"
)

var (
	ErrWrap   = errors.New("kms wrap failed")
	ErrUnwrap = errors.New("kms unwrap failed")
)

// Config selects the provider that wraps the data key at rest. Only the block
// matching Type is read.
type Config struct {
	Type  types.ProviderType `mapstructure:"type"`
	AWS   *AWSConfig         `mapstructure:"aws"`
	Azure *AzureConfig       `mapstructure:"azure"`
	GCP   *GCPConfig         `mapstructure:"gcp"`
	Vault *VaultConfig       `mapstructure:"vault"`
	Aead  *AeadConfig        `mapstructure:"aead"`
}

// AWSConfig represents AWS KMS configuration
type AWSConfig struct {
	KeyID       string                `mapstructure:"key_id"`
	Region      string                `mapstructure:"region"`
	Credentials *types.KMSCredentials `mapstructure:"credentials"`
}

// AzureConfig represents Azure Key Vault configuration
type AzureConfig struct {
	KeyID        string                `mapstructure:"key_id"`
	VaultAddress string                `mapstructure:"vault_address"`
	Credentials  *types.KMSCredentials `mapstructure:"credentials"`
}

// GCPConfig represents Google Cloud KMS configuration. ResourceName is the
// full crypto key path.
type GCPConfig struct {
	ResourceName string                `mapstructure:"resource_name"`
	Credentials  *types.KMSCredentials `mapstructure:"credentials"`
}

// VaultConfig represents HashiCorp Vault Transit configuration
type VaultConfig struct {
	KeyID        string                `mapstructure:"key_id"`
	VaultAddress string                `mapstructure:"vault_address"`
	VaultMount   string                `mapstructure:"vault_mount"`
	Credentials  *types.KMSCredentials `mapstructure:"credentials"`
}

// AeadConfig is a local root key, base64 encoded
type AeadConfig struct {
	KeyBase64 string `mapstructure:"key"`
	KeyID     string `mapstructure:"key_id"`
}

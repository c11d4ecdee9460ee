// Package credentials seals and opens the KMS provider credentials that are
// kept in configuration.
package credentials

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/interfaces"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/kms"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/kms/credentials/symmetric"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/types"
)

// MaskedValue replaces secrets in output meant for humans
const MaskedValue = "[MASKED]"

// Manager implements interfaces.CredentialsManager
type Manager struct {
	encryptor interfaces.SymmetricEncryptor
}

// NewManager creates a credential manager from the bootstrap key
func NewManager(bootstrapKey []byte) (*Manager, error) {
	encryptor, err := symmetric.NewEncryption(bootstrapKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create encryptor: %w", err)
	}
	return &Manager{encryptor: encryptor}, nil
}

type credentialField struct {
	name  string
	value *string
}

func fields(creds *types.KMSCredentials) []credentialField {
	return []credentialField{
		{"AWS access key", &creds.AccessKeyID},
		{"AWS secret key", &creds.SecretAccessKey},
		{"AWS session token", &creds.SessionToken},
		{"Azure tenant ID", &creds.TenantID},
		{"Azure client ID", &creds.ClientID},
		{"Azure client secret", &creds.ClientSecret},
		{"GCP credentials JSON", &creds.CredentialsJSON},
		{"Vault token", &creds.Token},
	}
}

// EncryptCredentials seals every non-empty field in place. Masked values are
// cleared since they carry no secret.
func (m *Manager) EncryptCredentials(creds *types.KMSCredentials) error {
	if creds == nil {
		return nil
	}

	sealed := *creds
	for _, f := range fields(&sealed) {
		if *f.value == MaskedValue {
			*f.value = ""
		}
		if *f.value == "" {
			continue
		}
		encrypted, err := m.encryptor.Encrypt(*f.value)
		if err != nil {
			return fmt.Errorf("failed to encrypt %s: %w", f.name, err)
		}
		*f.value = encrypted
	}
	*creds = sealed
	return nil
}

// DecryptCredentials opens every sealed field in place. On error creds is left unchanged.
func (m *Manager) DecryptCredentials(creds *types.KMSCredentials) error {
	if creds == nil {
		return nil
	}

	opened := *creds
	present := 0
	for _, f := range fields(&opened) {
		if *f.value == "" || *f.value == MaskedValue {
			*f.value = ""
			continue
		}
		decrypted, err := m.encryptor.Decrypt(*f.value)
		if err != nil {
			log.Error().Err(err).Str("field", f.name).Msg("Failed to decrypt credential field")
			return fmt.Errorf("failed to decrypt %s: %w", f.name, err)
		}
		*f.value = decrypted
		present++
	}
	*creds = opened

	log.Debug().Int("fields", present).Msg("Credentials decrypted successfully")
	return nil
}

// OpenConfig decrypts the credentials block of the provider selected by cfg.Type
func (m *Manager) OpenConfig(cfg *kms.Config) error {
	var creds *types.KMSCredentials
	switch cfg.Type {
	case types.ProviderAWS:
		if cfg.AWS != nil {
			creds = cfg.AWS.Credentials
		}
	case types.ProviderAzure:
		if cfg.Azure != nil {
			creds = cfg.Azure.Credentials
		}
	case types.ProviderGCP:
		if cfg.GCP != nil {
			creds = cfg.GCP.Credentials
		}
	case types.ProviderVault:
		if cfg.Vault != nil {
			creds = cfg.Vault.Credentials
		}
	case types.ProviderAead:
		if cfg.Aead != nil && symmetric.IsSealed(cfg.Aead.KeyBase64) {
			key, err := m.encryptor.Decrypt(cfg.Aead.KeyBase64)
			if err != nil {
				return fmt.Errorf("failed to decrypt AEAD root key: %w", err)
			}
			cfg.Aead.KeyBase64 = key
		}
		return nil
	default:
		return fmt.Errorf("unsupported provider type: %s", cfg.Type)
	}
	return m.DecryptCredentials(creds)
}

// Mask returns a copy of creds with every present value replaced by MaskedValue
func Mask(creds *types.KMSCredentials) *types.KMSCredentials {
	if creds == nil {
		return nil
	}
	masked := *creds
	for _, f := range fields(&masked) {
		if *f.value != "" {
			*f.value = MaskedValue
		}
	}
	return &masked
}

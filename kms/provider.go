// Package kms wraps the subsystem's data key with a key management service
package kms

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"sync"

	wrapping "github.com/hashicorp/go-kms-wrapping/v2"
	kmsaead "github.com/hashicorp/go-kms-wrapping/v2/aead"
	awskms "github.com/hashicorp/go-kms-wrapping/wrappers/awskms/v2"
	azurekeyvault "github.com/hashicorp/go-kms-wrapping/wrappers/azurekeyvault/v2"
	gcpckms "github.com/hashicorp/go-kms-wrapping/wrappers/gcpckms/v2"
	transit "github.com/hashicorp/go-kms-wrapping/wrappers/transit/v2"
	"github.com/rs/zerolog/log"

	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/types"
)

var logger = log.With().Str("component", "kms").Logger()

// Provider implements interfaces.KMSProvider
type Provider struct {
	wrapper wrapping.Wrapper

	mu              sync.Mutex
	lastHealthCheck error
}

// NewProvider creates a new KMS provider based on the configuration
func NewProvider(ctx context.Context, config Config) (*Provider, error) {
	var wrapper wrapping.Wrapper
	var err error
	var keyID, location string

	logger.Debug().
		Str("provider", string(config.Type)).
		Msg("Initializing KMS provider")

	switch config.Type {
	case types.ProviderAWS:
		if config.AWS == nil {
			return nil, fmt.Errorf("AWS configuration is missing for provider type %s", config.Type)
		}
		keyID = config.AWS.KeyID
		location = config.AWS.Region
		if err = validateAWSConfig(*config.AWS); err != nil {
			return nil, fmt.Errorf("invalid AWS KMS configuration: %w", err)
		}
		wrapper, err = createAWSWrapper(ctx, *config.AWS)
	case types.ProviderAzure:
		if config.Azure == nil {
			return nil, fmt.Errorf("azure configuration is missing for provider type %s", config.Type)
		}
		keyID = config.Azure.KeyID
		location = config.Azure.VaultAddress
		if err = validateAzureConfig(*config.Azure); err != nil {
			return nil, fmt.Errorf("invalid Azure Key Vault configuration: %w", err)
		}
		wrapper, err = createAzureWrapper(ctx, *config.Azure)
	case types.ProviderGCP:
		if config.GCP == nil {
			return nil, fmt.Errorf("GCP configuration is missing for provider type %s", config.Type)
		}
		keyID = config.GCP.ResourceName
		if err = validateGCPConfig(*config.GCP); err != nil {
			return nil, fmt.Errorf("invalid GCP KMS configuration: %w", err)
		}
		location = strings.Split(config.GCP.ResourceName, "/")[3]
		wrapper, err = createGCPWrapper(ctx, *config.GCP)
	case types.ProviderVault:
		if config.Vault == nil {
			return nil, fmt.Errorf("vault configuration is missing for provider type %s", config.Type)
		}
		keyID = config.Vault.KeyID
		location = config.Vault.VaultAddress
		if err = validateVaultConfig(*config.Vault); err != nil {
			return nil, fmt.Errorf("invalid Vault configuration: %w", err)
		}
		wrapper, err = createVaultWrapper(ctx, *config.Vault)
	case types.ProviderAead:
		if config.Aead == nil {
			return nil, fmt.Errorf("aead configuration is missing for provider type %s", config.Type)
		}
		keyID = config.Aead.KeyID
		location = "local"
		wrapper, err = createAeadWrapper(ctx, *config.Aead)
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", config.Type)
	}

	if err != nil {
		logger.Error().Err(err).Str("provider", string(config.Type)).Msg("Failed to create KMS provider wrapper")
		return nil, fmt.Errorf("failed to create wrapper: %w", err)
	}

	logger.Info().
		Str("provider", string(config.Type)).
		Str("keyIdentifier", keyID).
		Str("locationContext", location).
		Msg("KMS provider initialized successfully")

	return &Provider{wrapper: wrapper}, nil
}

// GetWrapper returns the underlying KMS wrapper
func (p *Provider) GetWrapper() wrapping.Wrapper {
	return p.wrapper
}

// Test performs a round trip through the wrapper
func (p *Provider) Test(ctx context.Context) error {
	if p.wrapper == nil {
		return fmt.Errorf("wrapper not initialized")
	}

	testData := []byte("test")
	encrypted, err := p.wrapper.Encrypt(ctx, testData)
	if err != nil {
		return fmt.Errorf("encryption test failed: %w", err)
	}
	decrypted, err := p.wrapper.Decrypt(ctx, encrypted)
	if err != nil {
		return fmt.Errorf("decryption test failed: %w", err)
	}
	if string(decrypted) != string(testData) {
		return fmt.Errorf("decrypted data does not match original")
	}
	return nil
}

// HealthCheck runs Test and remembers the outcome
func (p *Provider) HealthCheck(ctx context.Context) error {
	if p.wrapper == nil {
		return fmt.Errorf("KMS provider not properly initialized: wrapper is nil")
	}

	var result error
	if err := p.Test(ctx); err != nil {
		result = fmt.Errorf("KMS provider health check failed: %w", err)
	}

	p.mu.Lock()
	p.lastHealthCheck = result
	p.mu.Unlock()
	return result
}

// GetLastHealthCheckError returns the last health check error if any
func (p *Provider) GetLastHealthCheckError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastHealthCheck
}

func validateAWSConfig(awsConfig AWSConfig) error {
	if awsConfig.KeyID == "" {
		return fmt.Errorf("key ID (ARN) is required")
	}
	if awsConfig.Region == "" {
		return fmt.Errorf("region is required")
	}

	if creds := awsConfig.Credentials; creds != nil {
		if (creds.AccessKeyID != "") != (creds.SecretAccessKey != "") {
			return fmt.Errorf("both accessKeyId and secretAccessKey must be provided if using credentials")
		}
	} else {
		logger.Info().Msg("AWS credentials not provided in config, assuming environment variables or default credentials")
	}
	return nil
}

func validateAzureConfig(azureConfig AzureConfig) error {
	if azureConfig.KeyID == "" {
		return fmt.Errorf("key ID (URL) is required")
	}
	if !strings.HasPrefix(azureConfig.VaultAddress, "https://") || !strings.Contains(azureConfig.VaultAddress, ".vault.azure.net") {
		return fmt.Errorf("vault address must be a valid Azure Key Vault URL (e.g., https://myvault.vault.azure.net)")
	}

	if creds := azureConfig.Credentials; creds != nil {
		required := []struct{ name, value string }{
			{"tenantId", creds.TenantID},
			{"clientId", creds.ClientID},
			{"clientSecret", creds.ClientSecret},
		}
		for _, field := range required {
			if field.value == "" {
				return fmt.Errorf("%s is required in credentials and cannot be empty", field.name)
			}
		}
	} else {
		logger.Info().Msg("Azure credentials not provided, assuming alternative authentication method (e.g., Managed Identity)")
	}
	return nil
}

// projects/{project}/locations/{location}/keyRings/{keyRing}/cryptoKeys/{cryptoKey}
func parseGCPResourceName(name string) ([]string, error) {
	parts := strings.Split(name, "/")
	if len(parts) != 8 || parts[0] != "projects" || parts[2] != "locations" || parts[4] != "keyRings" || parts[6] != "cryptoKeys" {
		return nil, fmt.Errorf("invalid resource name format. Expected: projects/{project}/locations/{location}/keyRings/{keyRing}/cryptoKeys/{cryptoKey}")
	}
	if parts[1] == "" || parts[3] == "" || parts[5] == "" || parts[7] == "" {
		return nil, fmt.Errorf("project, location, keyRing, and cryptoKey components in resource name cannot be empty")
	}
	return parts, nil
}

func validateGCPConfig(gcpConfig GCPConfig) error {
	if gcpConfig.ResourceName == "" {
		return fmt.Errorf("resource name is required")
	}
	if _, err := parseGCPResourceName(gcpConfig.ResourceName); err != nil {
		return err
	}

	if gcpConfig.Credentials != nil {
		if gcpConfig.Credentials.CredentialsJSON == "" {
			return fmt.Errorf("credentialsJson is required in credentials and cannot be empty")
		}
	} else {
		logger.Info().Msg("GCP credentials not provided in config, assuming Application Default Credentials (ADC).")
	}
	return nil
}

func validateVaultConfig(vaultConfig VaultConfig) error {
	if vaultConfig.KeyID == "" {
		return fmt.Errorf("key ID (key name) is required")
	}
	if vaultConfig.VaultAddress == "" {
		return fmt.Errorf("vault address is required")
	}

	if vaultConfig.Credentials != nil {
		if vaultConfig.Credentials.Token == "" {
			return fmt.Errorf("token is required in credentials and cannot be empty")
		}
	} else {
		logger.Info().Msg("Vault token not provided in config, assuming VAULT_TOKEN environment variable or other auth method")
	}
	return nil
}

func createAWSWrapper(ctx context.Context, awsConfig AWSConfig) (wrapping.Wrapper, error) {
	wrapper := awskms.NewWrapper()

	configMap := map[string]string{
		"kms_key_id": awsConfig.KeyID,
		"region":     awsConfig.Region,
	}
	if creds := awsConfig.Credentials; creds != nil {
		logger.Debug().
			Bool("accessKey", creds.AccessKeyID != "").
			Bool("sessionToken", creds.SessionToken != "").
			Msg("Configuring AWS KMS credentials from config")
		if creds.AccessKeyID != "" {
			configMap["access_key"] = creds.AccessKeyID
			configMap["secret_key"] = creds.SecretAccessKey
		}
		if creds.SessionToken != "" {
			configMap["session_token"] = creds.SessionToken
		}
	}

	if _, err := wrapper.SetConfig(ctx, wrapping.WithConfigMap(configMap)); err != nil {
		return nil, fmt.Errorf("failed to configure AWS KMS wrapper: %w", err)
	}
	return wrapper, nil
}

func createAzureWrapper(ctx context.Context, azureConfig AzureConfig) (wrapping.Wrapper, error) {
	wrapper := azurekeyvault.NewWrapper()

	// https://myvault.vault.azure.net/keys/mykey/version
	keyName := azureConfig.KeyID
	keyVersion := ""
	parts := strings.Split(azureConfig.KeyID, "/")
	if len(parts) >= 5 && parts[3] == "keys" {
		keyName = parts[4]
		if len(parts) >= 6 {
			keyVersion = parts[5]
		}
	} else {
		logger.Warn().Str("keyId", azureConfig.KeyID).Msg("Azure KeyID does not look like a standard Key Identifier URL. Using the full value as key_name.")
	}

	vaultName := strings.Split(strings.TrimPrefix(azureConfig.VaultAddress, "https://"), ".")[0]
	configMap := map[string]string{
		"key_name":   keyName,
		"vault_name": vaultName,
		"vault_url":  azureConfig.VaultAddress,
	}
	if keyVersion != "" {
		configMap["key_version"] = keyVersion
	}
	if creds := azureConfig.Credentials; creds != nil {
		configMap["tenant_id"] = creds.TenantID
		configMap["client_id"] = creds.ClientID
		configMap["client_secret"] = creds.ClientSecret
	}

	if _, err := wrapper.SetConfig(ctx, wrapping.WithConfigMap(configMap)); err != nil {
		return nil, fmt.Errorf("failed to configure Azure Key Vault wrapper: %w", err)
	}
	return wrapper, nil
}

func createGCPWrapper(ctx context.Context, gcpConfig GCPConfig) (wrapping.Wrapper, error) {
	wrapper := gcpckms.NewWrapper()

	parts, err := parseGCPResourceName(gcpConfig.ResourceName)
	if err != nil {
		return nil, err
	}
	configMap := map[string]string{
		"project":    parts[1],
		"region":     parts[3],
		"key_ring":   parts[5],
		"crypto_key": parts[7],
	}

	// The library reads credentials from a file path only
	if gcpConfig.Credentials != nil {
		tempFile, err := os.CreateTemp("", "gcp-creds-*.json")
		if err != nil {
			return nil, fmt.Errorf("failed to create temporary credentials file: %w", err)
		}
		defer func() {
			if errRemove := os.Remove(tempFile.Name()); errRemove != nil {
				logger.Error().Err(errRemove).Str("filePath", tempFile.Name()).Msg("Failed to remove temporary credentials file")
			}
		}()

		if _, err := tempFile.WriteString(gcpConfig.Credentials.CredentialsJSON); err != nil {
			_ = tempFile.Close()
			return nil, fmt.Errorf("failed to write credentials to temporary file: %w", err)
		}
		if err := tempFile.Close(); err != nil {
			logger.Error().Err(err).Str("filePath", tempFile.Name()).Msg("Failed to close temporary credentials file after successful write")
		}
		configMap["credentials"] = tempFile.Name()
	}

	if _, err := wrapper.SetConfig(ctx, wrapping.WithConfigMap(configMap)); err != nil {
		return nil, fmt.Errorf("failed to configure GCP KMS wrapper: %w", err)
	}
	return wrapper, nil
}

func createVaultWrapper(ctx context.Context, vaultConfig VaultConfig) (wrapping.Wrapper, error) {
	wrapper := transit.NewWrapper()

	configMap := map[string]string{
		"address":  vaultConfig.VaultAddress,
		"key_name": vaultConfig.KeyID,
	}
	if vaultConfig.VaultMount != "" {
		configMap["mount_path"] = vaultConfig.VaultMount
	}
	if vaultConfig.Credentials != nil {
		configMap["token"] = vaultConfig.Credentials.Token
	}

	if _, err := wrapper.SetConfig(ctx, wrapping.WithConfigMap(configMap)); err != nil {
		return nil, fmt.Errorf("failed to configure Vault Transit wrapper: %w", err)
	}
	return wrapper, nil
}

func createAeadWrapper(ctx context.Context, aeadConfig AeadConfig) (wrapping.Wrapper, error) {
	if aeadConfig.KeyBase64 == "" {
		return nil, fmt.Errorf("AEAD provider requires a base64 key")
	}
	decodedKey, err := base64.StdEncoding.DecodeString(aeadConfig.KeyBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode AEAD key: %w", err)
	}
	if len(decodedKey) != 32 {
		return nil, fmt.Errorf("decoded AEAD key must be 32 bytes for AES-256-GCM, got %d", len(decodedKey))
	}

	wrapper := kmsaead.NewWrapper()
	opts := []wrapping.Option{kmsaead.WithKey(decodedKey)}
	if aeadConfig.KeyID != "" {
		opts = append(opts, wrapping.WithKeyId(aeadConfig.KeyID))
	}
	if _, err := wrapper.SetConfig(ctx, opts...); err != nil {
		return nil, fmt.Errorf("failed to configure AEAD wrapper: %w", err)
	}
	return wrapper, nil
}

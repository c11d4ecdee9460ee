package types

// ProviderType represents the type of KMS provider
type ProviderType string

const (
	ProviderAWS   ProviderType = "aws"
	ProviderAzure ProviderType = "azure"
	ProviderGCP   ProviderType = "gcp"
	ProviderVault ProviderType = "vault"
	ProviderAead  ProviderType = "aead"
)

// KMSCredentials represents KMS provider credentials. Values may be sealed
// with the credentials manager and carry the ENC[...] marker.
type KMSCredentials struct {
	// AWS credentials
	AccessKeyID     string `json:"accessKeyId,omitempty" mapstructure:"access_key_id"`
	SecretAccessKey string `json:"secretAccessKey,omitempty" mapstructure:"secret_access_key"`
	SessionToken    string `json:"sessionToken,omitempty" mapstructure:"session_token"`

	// Azure credentials
	TenantID     string `json:"tenantId,omitempty" mapstructure:"tenant_id"`
	ClientID     string `json:"clientId,omitempty" mapstructure:"client_id"`
	ClientSecret string `json:"clientSecret,omitempty" mapstructure:"client_secret"`

	// GCP credentials
	CredentialsJSON string `json:"credentialsJson,omitempty" mapstructure:"credentials_json"`

	// Vault credentials
	Token string `json:"token,omitempty" mapstructure:"token"`
}

package kms

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/types"
)

func testAeadKey() string {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i + 1)
	}
	return base64.StdEncoding.EncodeToString(key)
}

func checkErr(t *testing.T, err error, expectErr bool, errSubstr string) {
	t.Helper()
	if expectErr {
		if err == nil {
			t.Errorf("expected an error but got nil")
		} else if errSubstr != "" && !strings.Contains(err.Error(), errSubstr) {
			t.Errorf("expected error containing %q, got %q", errSubstr, err.Error())
		}
	} else if err != nil {
		t.Errorf("expected no error but got: %v", err)
	}
}

func TestValidateAWSConfig(t *testing.T) {
	tests := []struct {
		name      string
		config    AWSConfig
		expectErr bool
		errSubstr string
	}{
		{
			name: "Valid AWS Config",
			config: AWSConfig{
				KeyID:       "arn:aws:kms:us-east-1:123456789012:key/valid-key-id",
				Region:      "us-east-1",
				Credentials: &types.KMSCredentials{AccessKeyID: "ACCESSKEY", SecretAccessKey: "SECRETKEY"},
			},
		},
		{
			name:   "Valid AWS Config (No Credentials)",
			config: AWSConfig{KeyID: "arn:aws:kms:us-east-1:123456789012:key/valid-key-id", Region: "us-east-1"},
		},
		{
			name:      "Missing KeyID",
			config:    AWSConfig{Region: "us-east-1"},
			expectErr: true,
			errSubstr: "key ID (ARN) is required",
		},
		{
			name:      "Missing Region",
			config:    AWSConfig{KeyID: "arn:aws:kms:us-east-1:123456789012:key/valid-key-id"},
			expectErr: true,
			errSubstr: "region is required",
		},
		{
			name: "Missing Secret Key",
			config: AWSConfig{
				KeyID:       "arn:aws:kms:us-east-1:123456789012:key/valid-key-id",
				Region:      "us-east-1",
				Credentials: &types.KMSCredentials{AccessKeyID: "ACCESSKEY"},
			},
			expectErr: true,
			errSubstr: "both accessKeyId and secretAccessKey must be provided",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, validateAWSConfig(tt.config), tt.expectErr, tt.errSubstr)
		})
	}
}

func TestValidateAzureConfig(t *testing.T) {
	tests := []struct {
		name      string
		config    AzureConfig
		expectErr bool
		errSubstr string
	}{
		{
			name: "Valid Azure Config",
			config: AzureConfig{
				KeyID:        "https://myvault.vault.azure.net/keys/mykey/version",
				VaultAddress: "https://myvault.vault.azure.net",
				Credentials:  &types.KMSCredentials{TenantID: "TENANT", ClientID: "CLIENT", ClientSecret: "SECRET"},
			},
		},
		{
			name: "Valid Azure Config (Managed Identity)",
			config: AzureConfig{
				KeyID:        "https://myvault.vault.azure.net/keys/mykey/version",
				VaultAddress: "https://myvault.vault.azure.net",
			},
		},
		{
			name:      "Missing KeyID",
			config:    AzureConfig{VaultAddress: "https://myvault.vault.azure.net"},
			expectErr: true,
			errSubstr: "key ID (URL) is required",
		},
		{
			name:      "Invalid Vault Address",
			config:    AzureConfig{KeyID: "mykey", VaultAddress: "http://myvault.example.com"},
			expectErr: true,
			errSubstr: "vault address must be a valid Azure Key Vault URL",
		},
		{
			name: "Missing Client Secret",
			config: AzureConfig{
				KeyID:        "https://myvault.vault.azure.net/keys/mykey",
				VaultAddress: "https://myvault.vault.azure.net",
				Credentials:  &types.KMSCredentials{TenantID: "TENANT", ClientID: "CLIENT"},
			},
			expectErr: true,
			errSubstr: "clientSecret is required in credentials and cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, validateAzureConfig(tt.config), tt.expectErr, tt.errSubstr)
		})
	}
}

func TestValidateGCPConfig(t *testing.T) {
	valid := "projects/p/locations/europe-west3/keyRings/r/cryptoKeys/k"
	tests := []struct {
		name      string
		config    GCPConfig
		expectErr bool
		errSubstr string
	}{
		{
			name:   "Valid GCP Config",
			config: GCPConfig{ResourceName: valid, Credentials: &types.KMSCredentials{CredentialsJSON: `{"project_id":"p"}`}},
		},
		{
			name:   "Valid GCP Config (ADC)",
			config: GCPConfig{ResourceName: valid},
		},
		{
			name:      "Missing Resource Name",
			config:    GCPConfig{},
			expectErr: true,
			errSubstr: "resource name is required",
		},
		{
			name:      "Wrong Segment Names",
			config:    GCPConfig{ResourceName: "projects/p/regions/l/keyRings/r/cryptoKeys/k"},
			expectErr: true,
			errSubstr: "invalid resource name format",
		},
		{
			name:      "Empty Component",
			config:    GCPConfig{ResourceName: "projects//locations/l/keyRings/r/cryptoKeys/k"},
			expectErr: true,
			errSubstr: "components in resource name cannot be empty",
		},
		{
			name:      "Empty Credentials JSON",
			config:    GCPConfig{ResourceName: valid, Credentials: &types.KMSCredentials{}},
			expectErr: true,
			errSubstr: "credentialsJson is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, validateGCPConfig(tt.config), tt.expectErr, tt.errSubstr)
		})
	}
}

func TestValidateVaultConfig(t *testing.T) {
	tests := []struct {
		name      string
		config    VaultConfig
		expectErr bool
		errSubstr string
	}{
		{
			name: "Valid Vault Config",
			config: VaultConfig{
				KeyID:        "my-vault-key",
				VaultAddress: "https://vault.example.com:8200",
				VaultMount:   "transit",
				Credentials:  &types.KMSCredentials{Token: "VAULT_TOKEN"},
			},
		},
		{
			name:   "Valid Vault Config (Env Auth)",
			config: VaultConfig{KeyID: "my-vault-key", VaultAddress: "https://vault.example.com:8200"},
		},
		{
			name:      "Missing KeyID",
			config:    VaultConfig{VaultAddress: "https://vault.example.com:8200"},
			expectErr: true,
			errSubstr: "key ID (key name) is required",
		},
		{
			name:      "Missing Vault Address",
			config:    VaultConfig{KeyID: "my-vault-key"},
			expectErr: true,
			errSubstr: "vault address is required",
		},
		{
			name: "Empty Token Value",
			config: VaultConfig{
				KeyID:        "my-vault-key",
				VaultAddress: "https://vault.example.com:8200",
				Credentials:  &types.KMSCredentials{},
			},
			expectErr: true,
			errSubstr: "token is required in credentials and cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, validateVaultConfig(tt.config), tt.expectErr, tt.errSubstr)
		})
	}
}

func TestNewProviderConfigErrors(t *testing.T) {
	tests := []struct {
		name      string
		config    Config
		errSubstr string
	}{
		{"Unsupported Provider Type", Config{Type: "unknown"}, "unsupported provider type"},
		{"Missing AWS Config Struct", Config{Type: types.ProviderAWS}, "AWS configuration is missing"},
		{"Missing Azure Config Struct", Config{Type: types.ProviderAzure}, "azure configuration is missing"},
		{"Missing GCP Config Struct", Config{Type: types.ProviderGCP}, "GCP configuration is missing"},
		{"Missing Vault Config Struct", Config{Type: types.ProviderVault}, "vault configuration is missing"},
		{"Missing Aead Config Struct", Config{Type: types.ProviderAead}, "aead configuration is missing"},
		{"Invalid AWS Config", Config{Type: types.ProviderAWS, AWS: &AWSConfig{Region: "us-east-1"}}, "invalid AWS KMS configuration"},
		{"Invalid GCP Config", Config{Type: types.ProviderGCP, GCP: &GCPConfig{ResourceName: "invalid-format"}}, "invalid GCP KMS configuration"},
		{"Empty Aead Key", Config{Type: types.ProviderAead, Aead: &AeadConfig{}}, "requires a base64 key"},
		{"Short Aead Key", Config{Type: types.ProviderAead, Aead: &AeadConfig{KeyBase64: base64.StdEncoding.EncodeToString([]byte("short"))}}, "must be 32 bytes"},
		{"Bad Aead Encoding", Config{Type: types.ProviderAead, Aead: &AeadConfig{KeyBase64: "%%%"}}, "failed to decode AEAD key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(context.Background(), tt.config)
			checkErr(t, err, true, tt.errSubstr)
		})
	}
}

func TestAeadProviderHealthCheck(t *testing.T) {
	ctx := context.Background()
	p, err := NewProvider(ctx, Config{
		Type: types.ProviderAead,
		Aead: &AeadConfig{KeyBase64: testAeadKey(), KeyID: "root-1"},
	})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}

	if err := p.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck: %v", err)
	}
	if err := p.GetLastHealthCheckError(); err != nil {
		t.Errorf("GetLastHealthCheckError: %v", err)
	}

	keyID, err := p.GetWrapper().KeyId(ctx)
	if err != nil {
		t.Fatalf("KeyId: %v", err)
	}
	if keyID != "root-1" {
		t.Errorf("expected key id root-1, got %q", keyID)
	}
}

func TestHealthCheckWithoutWrapper(t *testing.T) {
	p := &Provider{}
	if err := p.HealthCheck(context.Background()); err == nil {
		t.Errorf("expected an error for an uninitialized provider")
	}
}

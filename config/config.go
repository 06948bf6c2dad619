// Package config loads and validates storage provider configuration.
package config

import (
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/recbee/unistore/consts"
	"github.com/recbee/unistore/logger"
	"github.com/recbee/unistore/storage"
)

// Recognized configuration keys.
const (
	EnvUploadMode = "STORAGE_UPLOAD_MODE"

	EnvS3Bucket    = "AWS_RECORDING_STORAGE_BUCKET_NAME"
	EnvS3Endpoint  = "AWS_ENDPOINT_URL"
	EnvS3Region    = "AWS_DEFAULT_REGION"
	EnvS3AccessKey = "AWS_ACCESS_KEY_ID"
	EnvS3SecretKey = "AWS_SECRET_ACCESS_KEY"

	EnvAzureAccount          = "AZURE_STORAGE_ACCOUNT_NAME"
	EnvAzureContainer        = "AZURE_STORAGE_CONTAINER_NAME"
	EnvAzureConnectionString = "AZURE_STORAGE_CONNECTION_STRING"
	EnvAzureAccountKey       = "AZURE_STORAGE_ACCOUNT_KEY"
)

// Lookup resolves a configuration key. [os.LookupEnv] in production.
type Lookup func(key string) (string, bool)

// StorageConfig is the validated configuration of a single provider.
// It is a sealed union of [S3Config] and [AzureConfig].
type StorageConfig interface {
	Provider() storage.Provider
	validate() error
}

// S3Config configures uploads to an S3-compatible object store.
// Endpoint, Region and the credential pair are optional overrides;
// absent values fall back to the ambient SDK defaults.
type S3Config struct {
	Bucket    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

func (S3Config) Provider() storage.Provider { return storage.ProviderS3 }

func (c S3Config) validate() error {
	return run(
		notEmpty("bucket", c.Bucket),
	)
}

// AzureConfig configures uploads to an Azure Blob Storage container.
// At least one authentication method must be present: the account name
// alone (managed identity), a connection string, or the account name
// with a shared account key.
type AzureConfig struct {
	Container        string
	AccountName      string
	ConnectionString string
	AccountKey       string
}

func (AzureConfig) Provider() storage.Provider { return storage.ProviderAzure }

func (c AzureConfig) validate() error {
	return run(
		notEmpty("container", c.Container),
		anyOf("account_name/connection_string/account_key",
			c.AccountName, c.ConnectionString, c.AccountKey),
	)
}

// Load reads provider configurations from lookup. It returns one config
// per provider that is enabled by the upload mode and passes validation,
// S3 first. Invalid configs are dropped with a warning, never an error;
// callers detect the zero-provider case themselves.
func Load(lookup Lookup) []StorageConfig {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	useS3, useAzure := parseMode(lookup)

	var candidates []StorageConfig
	if useS3 {
		candidates = append(candidates, s3FromLookup(lookup))
	}
	if useAzure {
		candidates = append(candidates, azureFromLookup(lookup))
	}

	configs := make([]StorageConfig, 0, len(candidates))
	for _, c := range candidates {
		if err := c.validate(); err != nil {
			logger.Warn(
				"dropping incomplete storage config",
				zap.String("provider", string(c.Provider())),
				zap.Error(err),
			)
			continue
		}
		configs = append(configs, c)
	}

	return configs
}

// parseMode maps STORAGE_UPLOAD_MODE onto provider enablement with
// case-insensitive membership checks. The default applies only when
// the variable is absent: a set-but-empty value is an unrecognized
// mode like any other and enables nothing. The absent-provider case
// surfaces later at upload time.
func parseMode(lookup Lookup) (useS3, useAzure bool) {
	mode, ok := lookup(EnvUploadMode)
	if !ok {
		mode = consts.DefaultUploadMode
	}
	mode = strings.ToLower(strings.TrimSpace(mode))

	useS3 = mode == "s3" || mode == "both" || mode == "all"
	useAzure = mode == "azure" || mode == "both" || mode == "all"
	return useS3, useAzure
}

func s3FromLookup(lookup Lookup) S3Config {
	return S3Config{
		Bucket:    get(lookup, EnvS3Bucket),
		Endpoint:  get(lookup, EnvS3Endpoint),
		Region:    get(lookup, EnvS3Region),
		AccessKey: get(lookup, EnvS3AccessKey),
		SecretKey: get(lookup, EnvS3SecretKey),
	}
}

func azureFromLookup(lookup Lookup) AzureConfig {
	return AzureConfig{
		Container:        get(lookup, EnvAzureContainer),
		AccountName:      get(lookup, EnvAzureAccount),
		ConnectionString: get(lookup, EnvAzureConnectionString),
		AccountKey:       get(lookup, EnvAzureAccountKey),
	}
}

func get(lookup Lookup, key string) string {
	v, _ := lookup(key)
	return v
}

package azure

import (
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"go.uber.org/zap"

	"github.com/recbee/unistore/config"
	"github.com/recbee/unistore/consts"
	"github.com/recbee/unistore/logger"
)

// newClient builds an [azblob.Client] picking an authentication method
// in priority order:
//
//  1. managed/workload identity, when only the account name is set;
//  2. connection string;
//  3. shared account key.
//
// With no method available it fails synchronously, before any upload
// goroutine is started.
func newClient(cfg config.AzureConfig) (*azblob.Client, error) {
	switch {
	case cfg.AccountName != "" && cfg.ConnectionString == "" && cfg.AccountKey == "":
		logger.Info(
			"using identity authentication for azure storage",
			zap.String("account", cfg.AccountName),
		)

		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("azure: cannot build identity credential: %w", err)
		}
		return azblob.NewClient(serviceURL(cfg.AccountName), cred, nil)

	case cfg.ConnectionString != "":
		logger.Info("using connection string authentication for azure storage")
		return azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)

	case cfg.AccountName != "" && cfg.AccountKey != "":
		logger.Warn("using shared key authentication for azure storage")

		cred, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
		if err != nil {
			return nil, fmt.Errorf("azure: cannot build shared key credential: %w", err)
		}
		return azblob.NewClientWithSharedKeyCredential(serviceURL(cfg.AccountName), cred, nil)

	default:
		return nil, fmt.Errorf(
			"azure: no authentication method: need an account name, a connection string or an account key",
		)
	}
}

func serviceURL(account string) string {
	return fmt.Sprintf("https://%s%s", account, consts.AzureBlobEndpointSuffix)
}

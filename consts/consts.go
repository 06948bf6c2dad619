package consts

import (
	"github.com/alecthomas/units"
)

const (
	// DefaultUploadMode is used when STORAGE_UPLOAD_MODE is not set.
	DefaultUploadMode = "s3"

	// UploadConcurrency is the parallelism of the SDK transfer managers.
	UploadConcurrency = 4

	// UploadPartSize is the chunk size used by the S3 transfer manager.
	UploadPartSize = int64(8 * units.MiB)

	AzureBlobEndpointSuffix = ".blob.core.windows.net"
)

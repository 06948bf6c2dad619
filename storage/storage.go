// Package storage defines the types shared by the provider uploaders.
package storage

import (
	"os"

	"go.uber.org/zap"

	"github.com/recbee/unistore/logger"
)

// Provider identifies a storage backend.
type Provider string

const (
	ProviderS3    Provider = "s3"
	ProviderAzure Provider = "azure"
)

// Label returns the human-readable provider name reported through callbacks.
func (p Provider) Label() string {
	switch p {
	case ProviderS3:
		return "AWS S3"
	case ProviderAzure:
		return "Azure Blob Storage"
	}
	return string(p)
}

// Callback receives the outcome of a background upload.
type Callback func(ok bool)

// Uploader performs a single background upload of a local file.
//
// Upload returns immediately and reports the outcome through cb only;
// it never panics across the goroutine boundary. Wait blocks until the
// background upload finishes and returns its terminal error. It is a
// no-op when no upload was started.
type Uploader interface {
	Upload(path string, cb Callback)
	Wait() error
	RemoveLocal(path string) error
}

// RemoveLocalFile deletes path from the local filesystem.
// A missing file is not an error.
func RemoveLocalFile(path string) error {
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	logger.Info("deleted local file", zap.String("file", path))
	return nil
}

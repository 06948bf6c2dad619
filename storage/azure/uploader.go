package azure

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/recbee/unistore/config"
	"github.com/recbee/unistore/consts"
	"github.com/recbee/unistore/logger"
	"github.com/recbee/unistore/metric"
	"github.com/recbee/unistore/storage"
)

var (
	_ storage.Uploader = (*uploader)(nil)
)

// uploader writes one local file to a container under a fixed blob name.
type uploader struct {
	ctx       context.Context
	cli       *azblob.Client
	container string
	blob      string

	inflight *atomic.Bool
	done     chan struct{}
	err      error
}

func NewUploader(ctx context.Context, cfg config.AzureConfig, blob string) (*uploader, error) {
	cli, err := newClient(cfg)
	if err != nil {
		return nil, err
	}

	return &uploader{
		ctx:       ctx,
		cli:       cli,
		container: cfg.Container,
		blob:      blob,
		inflight:  atomic.NewBool(false),
	}, nil
}

// Upload starts a background upload of the file at path and returns
// immediately. The outcome is reported through cb only; no error ever
// escapes the goroutine.
func (u *uploader) Upload(path string, cb storage.Callback) {
	u.done = make(chan struct{})
	u.inflight.Store(true)

	go func() {
		defer close(u.done)
		defer u.inflight.Store(false)

		start := time.Now()
		err := u.upload(path)
		metric.UploadDurationSeconds.
			WithLabelValues(string(storage.ProviderAzure)).
			Observe(time.Since(start).Seconds())

		if err != nil {
			u.err = err
			logger.Error(
				"azure upload failed",
				zap.String("file", path),
				zap.String("blob", u.blob),
				zap.Error(err),
			)
		} else {
			logger.Info(
				"uploaded file to azure blob storage",
				zap.String("file", path),
				zap.String("container", u.container),
				zap.String("blob", u.blob),
			)
		}

		if cb != nil {
			cb(err == nil)
		}
	}()
}

func (u *uploader) upload(path string) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("azure: upload of file=%q panicked: %v", path, p)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("azure: cannot open file=%q: %w", path, err)
	}
	defer f.Close()

	// The SDK splits large files into blocks on its own; overwrite
	// semantics match a plain block blob upload.
	_, err = u.cli.UploadFile(u.ctx, u.container, u.blob, f, &azblob.UploadFileOptions{
		Concurrency: consts.UploadConcurrency,
	})

	if err != nil {
		return fmt.Errorf(
			"azure: cannot upload file=%q: %w",
			path, err,
		)
	}

	return nil
}

// Wait blocks until the background upload finishes and returns its
// terminal error. It is a no-op if no upload was started.
func (u *uploader) Wait() error {
	if u.done == nil {
		return nil
	}
	<-u.done
	return u.err
}

func (u *uploader) RemoveLocal(path string) error {
	return storage.RemoveLocalFile(path)
}

// BlobURL returns the canonical URL of the target blob. There is no
// existence check: before a successful upload the URL is well-formed
// but dereferences to nothing.
func (u *uploader) BlobURL() string {
	return u.cli.ServiceClient().
		NewContainerClient(u.container).
		NewBlobClient(u.blob).
		URL()
}

// Inflight reports whether a background upload is still running.
func (u *uploader) Inflight() bool {
	return u.inflight.Load()
}

package s3

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/recbee/unistore/consts"
	"github.com/recbee/unistore/logger"
	"github.com/recbee/unistore/metric"
	"github.com/recbee/unistore/storage"
)

var (
	_ storage.Uploader = (*uploader)(nil)
)

// uploader writes one local file to the bucket under a fixed key.
// A single uploader drives at most one upload at a time.
type uploader struct {
	ctx     context.Context
	c       *Client
	key     string
	manager *manager.Uploader

	inflight *atomic.Bool
	done     chan struct{}
	err      error
}

func NewUploader(ctx context.Context, c *Client, key string) *uploader {
	return &uploader{
		ctx: ctx,
		c:   c,
		key: key,
		manager: manager.NewUploader(c.cli, func(u *manager.Uploader) {
			u.Concurrency = consts.UploadConcurrency
			u.PartSize = consts.UploadPartSize
		}),
		inflight: atomic.NewBool(false),
	}
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
			WithLabelValues(string(storage.ProviderS3)).
			Observe(time.Since(start).Seconds())

		if err != nil {
			u.err = err
			logger.Error(
				"s3 upload failed",
				zap.String("file", path),
				zap.String("key", u.key),
				zap.Error(err),
			)
		} else {
			logger.Info(
				"uploaded file to s3",
				zap.String("file", path),
				zap.String("bucket", u.c.bucket),
				zap.String("key", u.key),
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
			err = fmt.Errorf("s3: upload of file=%q panicked: %v", path, p)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("s3: cannot open file=%q: %w", path, err)
	}
	defer f.Close()

	_, err = u.manager.Upload(u.ctx, &s3.PutObjectInput{
		Bucket: aws.String(u.c.bucket),
		Key:    aws.String(u.key),
		Body:   f,
	})

	if err != nil {
		return fmt.Errorf(
			"s3: cannot upload file=%q: %w",
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

// Inflight reports whether a background upload is still running.
func (u *uploader) Inflight() bool {
	return u.inflight.Load()
}

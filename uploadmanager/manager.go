// Package uploadmanager coordinates uploads of a single local file to
// every configured storage provider.
package uploadmanager

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/recbee/unistore/config"
	"github.com/recbee/unistore/logger"
	"github.com/recbee/unistore/metric"
	"github.com/recbee/unistore/storage"
	"github.com/recbee/unistore/storage/azure"
	"github.com/recbee/unistore/storage/s3"
)

// ResultCallback receives one completion notification per provider,
// tagged with the human-readable provider label. Invocation order
// across providers is nondeterministic.
type ResultCallback func(provider string, ok bool)

// blobURLer is implemented by uploaders that can build the canonical
// URL of the remote object.
type blobURLer interface {
	BlobURL() string
}

type uploaderFactory func(ctx context.Context, cfg config.StorageConfig, key string) (storage.Uploader, error)

// Manager owns the validated provider configurations for one file key
// and fans a local file out to every configured provider.
type Manager struct {
	ctx     context.Context
	fileKey string
	configs []config.StorageConfig

	lookup      config.Lookup
	newUploader uploaderFactory

	// mu guards everything below; callbacks append from the upload
	// goroutines.
	mu        sync.Mutex
	uploaders []storage.Uploader
	urls      map[storage.Provider]string
	succeeded []string
	failed    []string
}

type Option func(*Manager)

// WithLookup overrides the configuration source, [os.LookupEnv] by default.
func WithLookup(lookup config.Lookup) Option {
	return func(m *Manager) { m.lookup = lookup }
}

// New loads and validates provider configurations synchronously and
// returns a manager that will upload under the given file key.
func New(ctx context.Context, fileKey string, opts ...Option) *Manager {
	m := &Manager{
		ctx:         ctx,
		fileKey:     fileKey,
		newUploader: newUploader,
		urls:        map[storage.Provider]string{},
	}

	for _, opt := range opts {
		opt(m)
	}

	m.configs = config.Load(m.lookup)
	return m
}

// UploadFile starts one background upload per configured provider and
// returns immediately. cb is invoked once per provider; with zero
// configured providers nothing happens and cb is never called — check
// [Manager.HasStorageConfigured] first.
func (m *Manager) UploadFile(path string, cb ResultCallback) {
	if len(m.configs) == 0 {
		logger.Error("no storage providers configured", zap.String("file", path))
		return
	}

	// Results, URLs and handles all describe the most recent call.
	m.mu.Lock()
	m.uploaders = m.uploaders[:0]
	m.urls = map[storage.Provider]string{}
	m.succeeded = m.succeeded[:0]
	m.failed = m.failed[:0]
	m.mu.Unlock()

	for _, cfg := range m.configs {
		m.startUpload(cfg, path, cb)
	}
}

// startUpload builds the provider's uploader and launches its upload.
// A constructor failure is reported as that provider's failure and
// does not prevent the remaining providers from being attempted.
func (m *Manager) startUpload(cfg config.StorageConfig, path string, cb ResultCallback) {
	provider := cfg.Provider()
	metric.UploadsStartedTotal.WithLabelValues(string(provider)).Inc()

	u, err := m.newUploader(m.ctx, cfg, m.fileKey)
	if err != nil {
		logger.Error(
			"cannot start upload",
			zap.String("provider", provider.Label()),
			zap.String("file", path),
			zap.Error(err),
		)
		m.record(provider, cb, false)
		return
	}

	if url, ok := blobURL(u); ok {
		m.mu.Lock()
		m.urls[provider] = url
		m.mu.Unlock()
	}

	m.mu.Lock()
	m.uploaders = append(m.uploaders, u)
	m.mu.Unlock()

	u.Upload(path, func(ok bool) {
		m.record(provider, cb, ok)
	})
}

func (m *Manager) record(provider storage.Provider, cb ResultCallback, ok bool) {
	label := provider.Label()

	m.mu.Lock()
	if ok {
		m.succeeded = append(m.succeeded, label)
	} else {
		m.failed = append(m.failed, label)
	}
	m.mu.Unlock()

	status := "success"
	if !ok {
		status = "failure"
	}
	metric.UploadsFinishedTotal.WithLabelValues(string(provider), status).Inc()

	if ok {
		logger.Info("upload finished", zap.String("provider", label))
	} else {
		logger.Error("upload failed", zap.String("provider", label))
	}

	if cb != nil {
		cb(label, ok)
	}
}

// WaitForUploads blocks until every upload started by the most recent
// [Manager.UploadFile] call finishes. A failure of one uploader is
// logged and does not abort waiting on the rest; the combined errors
// are returned.
func (m *Manager) WaitForUploads() error {
	m.mu.Lock()
	uploaders := append([]storage.Uploader(nil), m.uploaders...)
	m.mu.Unlock()

	var errs error
	for _, u := range uploaders {
		if err := u.Wait(); err != nil {
			logger.Error("error waiting for upload", zap.Error(err))
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

// DeleteLocalFile removes the local file through the first uploader
// handle. Deleting is provider-independent, so any handle would do;
// with zero handles it is a no-op. Callers sequence this after
// [Manager.WaitForUploads] when they want cleanup-on-success.
func (m *Manager) DeleteLocalFile(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.uploaders) == 0 {
		return nil
	}
	return m.uploaders[0].RemoveLocal(path)
}

// HasStorageConfigured reports whether at least one valid provider
// configuration was loaded.
func (m *Manager) HasStorageConfigured() bool {
	return len(m.configs) > 0
}

// ConfiguredProviders returns the configured provider tags in load
// order: s3 before azure.
func (m *Manager) ConfiguredProviders() []storage.Provider {
	providers := make([]storage.Provider, 0, len(m.configs))
	for _, cfg := range m.configs {
		providers = append(providers, cfg.Provider())
	}
	return providers
}

// AzureBlobURL returns the canonical URL of the blob targeted by the
// most recent [Manager.UploadFile] call, or false when no azure upload
// was attempted. The URL is built when the upload starts; it does not
// imply the upload succeeded.
func (m *Manager) AzureBlobURL() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	url, ok := m.urls[storage.ProviderAzure]
	return url, ok
}

// Succeeded returns the labels of providers whose uploads finished
// successfully, in completion order.
func (m *Manager) Succeeded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.succeeded...)
}

// Failed returns the labels of providers whose uploads failed, in
// completion order.
func (m *Manager) Failed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.failed...)
}

func newUploader(ctx context.Context, cfg config.StorageConfig, key string) (storage.Uploader, error) {
	switch c := cfg.(type) {
	case config.S3Config:
		cli, err := s3.NewClient(ctx, c)
		if err != nil {
			return nil, err
		}
		return s3.NewUploader(ctx, cli, key), nil
	case config.AzureConfig:
		return azure.NewUploader(ctx, c, key)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider())
	}
}

// blobURL extracts the remote URL from uploaders that expose one.
// URL construction runs third-party code, so failures are demoted to
// an absent value.
func blobURL(u storage.Uploader) (url string, ok bool) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("cannot build blob url", zap.Any("panic", p))
			url, ok = "", false
		}
	}()

	b, isURLer := u.(blobURLer)
	if !isURLer {
		return "", false
	}
	return b.BlobURL(), true
}

package uploadmanager

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recbee/unistore/config"
	"github.com/recbee/unistore/storage"
)

func lookupMap(m map[string]string) config.Lookup {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func bothProvidersEnv() map[string]string {
	return map[string]string{
		config.EnvUploadMode:            "both",
		config.EnvS3Bucket:              "recordings",
		config.EnvAzureContainer:        "recordings",
		config.EnvAzureConnectionString: "DefaultEndpointsProtocol=https;AccountName=acct;AccountKey=c2VjcmV0;EndpointSuffix=core.windows.net",
	}
}

// fakeUploader emulates a provider uploader without touching the network.
type fakeUploader struct {
	ok    bool
	url   string
	delay time.Duration

	done chan struct{}

	mu      sync.Mutex
	removed []string
}

func (f *fakeUploader) Upload(path string, cb storage.Callback) {
	f.done = make(chan struct{})
	go func() {
		defer close(f.done)
		time.Sleep(f.delay)
		cb(f.ok)
	}()
}

func (f *fakeUploader) Wait() error {
	if f.done == nil {
		return nil
	}
	<-f.done
	if !f.ok {
		return errors.New("fake upload failed")
	}
	return nil
}

func (f *fakeUploader) RemoveLocal(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, path)
	return nil
}

// fakeURLUploader additionally exposes a remote URL, like the azure one.
type fakeURLUploader struct {
	fakeUploader
}

func (f *fakeURLUploader) BlobURL() string { return f.url }

// resultRecorder collects callback invocations across goroutines.
type resultRecorder struct {
	mu      sync.Mutex
	results map[string]bool
}

func newResultRecorder() *resultRecorder {
	return &resultRecorder{results: map[string]bool{}}
}

func (r *resultRecorder) callback(provider string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[provider] = ok
}

func (r *resultRecorder) snapshot() map[string]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]bool{}
	for k, v := range r.results {
		out[k] = v
	}
	return out
}

func TestUploadFileWithoutConfigsIsNoop(t *testing.T) {
	m := New(context.Background(), "rec.mp4", WithLookup(lookupMap(map[string]string{
		config.EnvUploadMode: "both",
	})))

	require.False(t, m.HasStorageConfigured())
	assert.Empty(t, m.ConfiguredProviders())

	rec := newResultRecorder()
	m.UploadFile("/tmp/rec.mp4", rec.callback)

	require.NoError(t, m.WaitForUploads())
	assert.Empty(t, rec.snapshot())
	assert.NoError(t, m.DeleteLocalFile("/tmp/rec.mp4"))

	_, ok := m.AzureBlobURL()
	assert.False(t, ok)
}

func TestUploadFileToBothProviders(t *testing.T) {
	m := New(context.Background(), "rec.mp4", WithLookup(lookupMap(bothProvidersEnv())))

	require.True(t, m.HasStorageConfigured())
	require.Equal(t,
		[]storage.Provider{storage.ProviderS3, storage.ProviderAzure},
		m.ConfiguredProviders(),
	)

	m.newUploader = func(_ context.Context, cfg config.StorageConfig, key string) (storage.Uploader, error) {
		assert.Equal(t, "rec.mp4", key)
		if cfg.Provider() == storage.ProviderAzure {
			return &fakeURLUploader{
				fakeUploader: fakeUploader{ok: true, delay: 10 * time.Millisecond},
			}, nil
		}
		return &fakeUploader{ok: true, delay: time.Millisecond}, nil
	}

	rec := newResultRecorder()
	m.UploadFile("/tmp/rec.mp4", rec.callback)
	require.NoError(t, m.WaitForUploads())

	assert.Equal(t, map[string]bool{
		"AWS S3":             true,
		"Azure Blob Storage": true,
	}, rec.snapshot())

	got := m.Succeeded()
	sort.Strings(got)
	assert.Equal(t, []string{"AWS S3", "Azure Blob Storage"}, got)
	assert.Empty(t, m.Failed())
}

func TestProviderFailureIsIsolated(t *testing.T) {
	m := New(context.Background(), "rec.mp4", WithLookup(lookupMap(bothProvidersEnv())))

	m.newUploader = func(_ context.Context, cfg config.StorageConfig, _ string) (storage.Uploader, error) {
		if cfg.Provider() == storage.ProviderAzure {
			return nil, errors.New("bad credentials")
		}
		return &fakeUploader{ok: true}, nil
	}

	rec := newResultRecorder()
	m.UploadFile("/tmp/rec.mp4", rec.callback)
	require.NoError(t, m.WaitForUploads())

	assert.Equal(t, map[string]bool{
		"AWS S3":             true,
		"Azure Blob Storage": false,
	}, rec.snapshot())

	assert.Equal(t, []string{"AWS S3"}, m.Succeeded())
	assert.Equal(t, []string{"Azure Blob Storage"}, m.Failed())
}

func TestFailedUploadIsRecordedAndWaited(t *testing.T) {
	m := New(context.Background(), "rec.mp4", WithLookup(lookupMap(bothProvidersEnv())))

	m.newUploader = func(_ context.Context, cfg config.StorageConfig, _ string) (storage.Uploader, error) {
		return &fakeUploader{ok: cfg.Provider() == storage.ProviderS3}, nil
	}

	rec := newResultRecorder()
	m.UploadFile("/tmp/rec.mp4", rec.callback)

	err := m.WaitForUploads()
	require.Error(t, err)

	assert.Equal(t, map[string]bool{
		"AWS S3":             true,
		"Azure Blob Storage": false,
	}, rec.snapshot())
}

func TestAzureBlobURL(t *testing.T) {
	m := New(context.Background(), "rec.mp4", WithLookup(lookupMap(bothProvidersEnv())))

	m.newUploader = func(_ context.Context, cfg config.StorageConfig, _ string) (storage.Uploader, error) {
		if cfg.Provider() == storage.ProviderAzure {
			return &fakeURLUploader{fakeUploader: fakeUploader{
				ok:  true,
				url: "https://acct.blob.core.windows.net/recordings/rec.mp4",
			}}, nil
		}
		return &fakeUploader{ok: true}, nil
	}

	_, ok := m.AzureBlobURL()
	require.False(t, ok, "no URL before an upload was attempted")

	m.UploadFile("/tmp/rec.mp4", nil)
	require.NoError(t, m.WaitForUploads())

	url, ok := m.AzureBlobURL()
	require.True(t, ok)
	assert.Equal(t, "https://acct.blob.core.windows.net/recordings/rec.mp4", url)
}

func TestRepeatedUploadResetsState(t *testing.T) {
	m := New(context.Background(), "rec.mp4", WithLookup(lookupMap(bothProvidersEnv())))

	azureBroken := false
	m.newUploader = func(_ context.Context, cfg config.StorageConfig, _ string) (storage.Uploader, error) {
		if cfg.Provider() == storage.ProviderAzure {
			if azureBroken {
				return nil, errors.New("bad credentials")
			}
			return &fakeURLUploader{fakeUploader: fakeUploader{
				ok:  true,
				url: "https://acct.blob.core.windows.net/recordings/rec.mp4",
			}}, nil
		}
		return &fakeUploader{ok: true}, nil
	}

	m.UploadFile("/tmp/rec.mp4", nil)
	require.NoError(t, m.WaitForUploads())

	_, ok := m.AzureBlobURL()
	require.True(t, ok)
	require.Len(t, m.Succeeded(), 2)

	// The second call fails on azure: no stale URL or results may
	// survive from the first one.
	azureBroken = true
	m.UploadFile("/tmp/rec.mp4", nil)
	require.NoError(t, m.WaitForUploads())

	_, ok = m.AzureBlobURL()
	assert.False(t, ok)
	assert.Equal(t, []string{"AWS S3"}, m.Succeeded())
	assert.Equal(t, []string{"Azure Blob Storage"}, m.Failed())
}

func TestDeleteLocalFileUsesFirstUploader(t *testing.T) {
	m := New(context.Background(), "rec.mp4", WithLookup(lookupMap(bothProvidersEnv())))

	first := &fakeUploader{ok: true}
	second := &fakeUploader{ok: true}

	m.newUploader = func(_ context.Context, cfg config.StorageConfig, _ string) (storage.Uploader, error) {
		if cfg.Provider() == storage.ProviderS3 {
			return first, nil
		}
		return second, nil
	}

	m.UploadFile("/tmp/rec.mp4", nil)
	require.NoError(t, m.WaitForUploads())

	require.NoError(t, m.DeleteLocalFile("/tmp/rec.mp4"))
	assert.Equal(t, []string{"/tmp/rec.mp4"}, first.removed)
	assert.Empty(t, second.removed)
}

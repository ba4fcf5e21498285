package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// ObjectStore holds the S3-compatible endpoint used for s3:// sources.
type ObjectStore struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// Fetched is a source materialized as a local file.
type Fetched struct {
	Path string
	// Temp means Path was downloaded and belongs to the build.
	Temp bool
}

// Fetcher materializes task sources as local files. Remote sources are
// downloaded into Dir, keeping the source's extension so format detection
// works on the local copy.
type Fetcher struct {
	Dir   string
	Store ObjectStore

	log  zerolog.Logger
	http *retryablehttp.Client

	s3once sync.Once
	s3     *minio.Client
	s3err  error
}

// NewFetcher builds a Fetcher whose HTTP client retries transport failures
// and 5xx responses up to retries times. Those failures come back from Fetch
// as permanent so the preflight backoff does not retry them again.
func NewFetcher(log zerolog.Logger, store ObjectStore, retries int) *Fetcher {
	c := retryablehttp.NewClient()
	c.RetryMax = retries
	c.RetryWaitMin = 500 * time.Millisecond
	c.RetryWaitMax = 10 * time.Second
	c.Logger = leveled{log}
	return &Fetcher{Store: store, log: log, http: c}
}

// Fetch resolves source to a local file.
func (f *Fetcher) Fetch(ctx context.Context, source string) (*Fetched, error) {
	u, err := url.Parse(source)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		if _, err := os.Stat(source); err != nil {
			return nil, fmt.Errorf("source not accessible: %w", err)
		}
		return &Fetched{Path: source}, nil
	}
	switch u.Scheme {
	case "file":
		return &Fetched{Path: u.Path}, nil
	case "http", "https":
		return f.fetchHTTP(ctx, u)
	case "s3":
		return f.fetchS3(ctx, u)
	}
	return nil, fmt.Errorf("unsupported source scheme %q", u.Scheme)
}

func (f *Fetcher) fetchHTTP(ctx context.Context, u *url.URL) (*Fetched, error) {
	req, err := retryablehttp.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	// The client already retried the request, so request and status
	// failures are final. Only an interrupted body is worth a new fetch.
	resp, err := f.http.Do(req.WithContext(ctx))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("download %s: %w", u.Redacted(), err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, backoff.Permanent(fmt.Errorf("download %s: status %d", u.Redacted(), resp.StatusCode))
	}

	tmp, err := f.tempFile(u.Path)
	if err != nil {
		return nil, err
	}
	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("download %s: %w", u.Redacted(), err)
	}
	f.log.Debug().Str("url", u.Redacted()).Int64("bytes", n).Msg("downloaded source")
	return &Fetched{Path: tmp.Name(), Temp: true}, nil
}

func (f *Fetcher) fetchS3(ctx context.Context, u *url.URL) (*Fetched, error) {
	client, err := f.objectClient()
	if err != nil {
		return nil, err
	}
	bucket, key := u.Host, strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("s3 source %q needs a bucket and key", u.String())
	}

	tmp, err := f.tempFile(key)
	if err != nil {
		return nil, err
	}
	tmp.Close()
	if err := client.FGetObject(ctx, bucket, key, tmp.Name(), minio.GetObjectOptions{}); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	f.log.Debug().Str("bucket", bucket).Str("key", key).Msg("downloaded object")
	return &Fetched{Path: tmp.Name(), Temp: true}, nil
}

func (f *Fetcher) objectClient() (*minio.Client, error) {
	f.s3once.Do(func() {
		if f.Store.Endpoint == "" {
			f.s3err = fmt.Errorf("s3 source requires object_store.endpoint")
			return
		}
		f.s3, f.s3err = minio.New(f.Store.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(f.Store.AccessKey, f.Store.SecretKey, ""),
			Secure: f.Store.UseSSL,
			Region: f.Store.Region,
		})
	})
	return f.s3, f.s3err
}

func (f *Fetcher) tempFile(name string) (*os.File, error) {
	ext := path.Ext(name)
	tmp, err := os.CreateTemp(f.Dir, "myelin-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	return tmp, nil
}

// formatOf returns the lowercase extension of a source without the dot.
func formatOf(source string) string {
	if u, err := url.Parse(source); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		source = u.Path
	}
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(source)), ".")
}

// leveled adapts zerolog to retryablehttp's LeveledLogger.
type leveled struct{ log zerolog.Logger }

func (l leveled) Error(msg string, kv ...interface{}) { l.log.Warn().Fields(kv).Msg(msg) }
func (l leveled) Info(msg string, kv ...interface{})  { l.log.Debug().Fields(kv).Msg(msg) }
func (l leveled) Debug(msg string, kv ...interface{}) { l.log.Trace().Fields(kv).Msg(msg) }
func (l leveled) Warn(msg string, kv ...interface{})  { l.log.Warn().Fields(kv).Msg(msg) }

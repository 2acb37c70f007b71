package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOConfig configures an S3-compatible artifact bucket
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// Validate checks the settings needed to reach the bucket
func (c MinIOConfig) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint is required")
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("access key is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("secret key is required")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("bucket is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("endpoint must not include scheme: %q", c.Endpoint)
	}
	return nil
}

// NewMinIOClient builds a client for cfg with static credentials
func NewMinIOClient(cfg MinIOConfig) (*minio.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	}
	return minio.New(cfg.Endpoint, opts)
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// MinIOStore keeps artifacts in a bucket under <prefix>/<run id>/<name>.
// S3 puts are atomic per object, so a failed or cancelled upload never
// leaves a partial artifact behind.
type MinIOStore struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinIOStore returns a store writing to cfg.Bucket under cfg.Prefix
func NewMinIOStore(client *minio.Client, cfg MinIOConfig) *MinIOStore {
	return &MinIOStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}
}

// EnsureBucket creates the bucket if it does not exist
func (s *MinIOStore) EnsureBucket(ctx context.Context, region string) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("creating bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Put uploads r as a single object. The size is known up front only when r
// can report it; otherwise minio-go streams a multipart upload.
func (s *MinIOStore) Put(ctx context.Context, runID, name string, r io.Reader) (*Artifact, error) {
	if err := validateKey(runID, name); err != nil {
		return nil, err
	}

	size := int64(-1)
	if st, ok := r.(interface{ Stat() (fs.FileInfo, error) }); ok {
		if info, err := st.Stat(); err == nil {
			size = info.Size()
		}
	}

	hasher := sha256.New()
	counter := &countingWriter{}
	reader := io.TeeReader(&contextReader{ctx: ctx, r: r}, io.MultiWriter(hasher, counter))

	_, err := s.client.PutObject(ctx, s.bucket, objectKey(s.prefix, runID, name), reader, size,
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", name, err)
	}

	return &Artifact{
		Name:     name,
		RunID:    runID,
		Size:     counter.n,
		SHA256:   hex.EncodeToString(hasher.Sum(nil)),
		StoredAt: time.Now().UTC(),
	}, nil
}

// Get opens the object for name, returning ErrNotFound for a missing key
func (s *MinIOStore) Get(ctx context.Context, runID, name string) (io.ReadCloser, error) {
	if err := validateKey(runID, name); err != nil {
		return nil, err
	}

	obj, err := s.client.GetObject(ctx, s.bucket, objectKey(s.prefix, runID, name), minio.GetObjectOptions{})
	if err != nil {
		return nil, classifyMinIOError(err, name)
	}
	// GetObject is lazy; Stat surfaces a missing key
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, classifyMinIOError(err, name)
	}
	return obj, nil
}

// List returns the artifact names stored for runID in name order
func (s *MinIOStore) List(ctx context.Context, runID string) ([]string, error) {
	if err := validateSegment("run id", runID); err != nil {
		return nil, err
	}

	prefix := objectKey(s.prefix, runID, "") + "/"
	var names []string
	for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if info.Err != nil {
			return nil, fmt.Errorf("listing run %s: %w", runID, info.Err)
		}
		name := strings.TrimPrefix(info.Key, prefix)
		if name == "" || strings.Contains(name, "/") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func objectKey(prefix, runID, name string) string {
	return path.Join(prefix, runID, name)
}

func classifyMinIOError(err error, name string) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchObject":
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return fmt.Errorf("opening %s: %w", name, err)
}

type countingWriter struct {
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}

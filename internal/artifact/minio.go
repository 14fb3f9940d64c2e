package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOConfig configures the object-storage artifact backend.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	Bucket    string
}

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
	if strings.TrimSpace(c.Region) == "" {
		return errors.New("region is required")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("artifacts bucket is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("endpoint must not include scheme: %q", c.Endpoint)
	}
	return nil
}

const (
	metaArtifactID  = "Artifact-Id"
	metaType        = "Artifact-Type"
	metaDescription = "Description"
	metaFlowRunID   = "Flow-Run-Id"
	metaFlowRunName = "Flow-Run-Name"
	metaCreatedAt   = "Created-At"
)

// MinIOStore writes each artifact version to its own object under <key>/.
type MinIOStore struct {
	client *minio.Client
	bucket string
}

// Ensure MinIOStore implements Store.
var _ Store = (*MinIOStore)(nil)

// NewMinIOStore connects to cfg.Endpoint and makes sure the bucket exists.
func NewMinIOStore(ctx context.Context, cfg MinIOConfig) (*MinIOStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	})
	if err != nil {
		return nil, err
	}

	if err := ensureBucket(ctx, client, cfg.Bucket, cfg.Region); err != nil {
		return nil, fmt.Errorf("ensure artifacts bucket: %w", err)
	}
	return &MinIOStore{client: client, bucket: cfg.Bucket}, nil
}

func ensureBucket(ctx context.Context, client *minio.Client, bucket string, region string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region})
}

// ObjectName returns the object a version is stored at. Names sort by
// creation time within a key.
func ObjectName(a Artifact) string {
	return fmt.Sprintf("%s/%020d-%s.md", a.Key, a.CreatedAt.UnixNano(), a.ID)
}

func (s *MinIOStore) Create(ctx context.Context, a Artifact) (Artifact, error) {
	_, err := s.client.PutObject(ctx, s.bucket, ObjectName(a), strings.NewReader(a.Data), int64(len(a.Data)),
		minio.PutObjectOptions{
			ContentType: "text/markdown; charset=utf-8",
			UserMetadata: map[string]string{
				metaArtifactID:  a.ID,
				metaType:        a.Type,
				metaDescription: a.Description,
				metaFlowRunID:   a.FlowRunID,
				metaFlowRunName: a.FlowRunName,
				metaCreatedAt:   a.CreatedAt.UTC().Format(time.RFC3339Nano),
			},
		})
	if err != nil {
		return Artifact{}, err
	}
	return a, nil
}

func (s *MinIOStore) Latest(ctx context.Context, key string) (Artifact, error) {
	names, err := s.list(ctx, key)
	if err != nil {
		return Artifact{}, err
	}
	return s.read(ctx, key, names[0])
}

// Versions returns every version of key, newest first.
func (s *MinIOStore) Versions(ctx context.Context, key string) ([]Artifact, error) {
	names, err := s.list(ctx, key)
	if err != nil {
		return nil, err
	}
	out := make([]Artifact, 0, len(names))
	for _, name := range names {
		a, err := s.read(ctx, key, name)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// list returns the object names for key, newest first.
func (s *MinIOStore) list(ctx context.Context, key string) ([]string, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	var names []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    key + "/",
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		names = append(names, obj.Key)
	}
	if len(names) == 0 {
		return nil, ErrNotFound
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

func (s *MinIOStore) read(ctx context.Context, key, name string) (Artifact, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return Artifact{}, err
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return Artifact{}, err
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return Artifact{}, err
	}

	a := Artifact{
		ID:          userMeta(info.UserMetadata, metaArtifactID),
		Key:         key,
		Type:        userMeta(info.UserMetadata, metaType),
		Description: userMeta(info.UserMetadata, metaDescription),
		Data:        string(data),
		FlowRunID:   userMeta(info.UserMetadata, metaFlowRunID),
		FlowRunName: userMeta(info.UserMetadata, metaFlowRunName),
		CreatedAt:   info.LastModified.UTC(),
	}
	if t, err := time.Parse(time.RFC3339Nano, userMeta(info.UserMetadata, metaCreatedAt)); err == nil {
		a.CreatedAt = t
	}
	if a.Type == "" {
		a.Type = TypeMarkdown
	}
	return a, nil
}

// userMeta looks name up regardless of case or an x-amz-meta- prefix.
func userMeta(meta map[string]string, name string) string {
	const prefix = "x-amz-meta-"
	for k, v := range meta {
		k = strings.ToLower(k)
		k = strings.TrimPrefix(k, prefix)
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
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

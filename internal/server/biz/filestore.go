package biz

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/spf13/afero/gcsfs"
	"golang.org/x/oauth2/google"
	googleoption "google.golang.org/api/option"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscredentials "github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	s3fs "github.com/looplj/afero-s3"

	"github.com/Shaswata28/studymate/internal/materials"
)

// FileStoreConfig selects and configures one of the multi-backend file
// store's targets (§6.4 supplement: local disk, S3, or GCS).
type FileStoreConfig struct {
	Backend   string `conf:"backend" yaml:"backend" json:"backend"` // fs|s3|gcs
	Directory string `conf:"directory" yaml:"directory" json:"directory"`

	S3Bucket    string `conf:"s3_bucket" yaml:"s3_bucket" json:"s3_bucket"`
	S3Region    string `conf:"s3_region" yaml:"s3_region" json:"s3_region"`
	S3Endpoint  string `conf:"s3_endpoint" yaml:"s3_endpoint" json:"s3_endpoint"`
	S3AccessKey string `conf:"s3_access_key" yaml:"s3_access_key" json:"s3_access_key"`
	S3SecretKey string `conf:"s3_secret_key" yaml:"s3_secret_key" json:"s3_secret_key"`

	GCSBucket     string `conf:"gcs_bucket" yaml:"gcs_bucket" json:"gcs_bucket"`
	GCSCredential string `conf:"gcs_credential" yaml:"gcs_credential" json:"gcs_credential"`
}

// FileStore implements materials.FileStore over an afero.Fs, the way the
// teacher's DataStorageService picks one of fs/S3/GCS and wraps it in a
// read-through cache (§4.6's file_ref resolves to raw bytes here).
type FileStore struct {
	fs afero.Fs
}

// NewFileStore builds a FileStore per cfg.Backend.
func NewFileStore(ctx context.Context, cfg FileStoreConfig) (*FileStore, error) {
	var (
		fs  afero.Fs
		err error
	)

	switch cfg.Backend {
	case "", "fs":
		fs = afero.NewBasePathFs(afero.NewOsFs(), cfg.Directory)
	case "s3":
		fs, err = newS3Fs(ctx, cfg)
	case "gcs":
		fs, err = newGcsFs(ctx, cfg)
	default:
		return nil, fmt.Errorf("biz: unsupported file store backend %q", cfg.Backend)
	}

	if err != nil {
		return nil, err
	}

	return &FileStore{fs: afero.NewCacheOnReadFs(fs, afero.NewMemMapFs(), 5*time.Minute)}, nil
}

func newS3Fs(ctx context.Context, cfg FileStoreConfig) (afero.Fs, error) {
	credProvider := awscredentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credProvider),
	)
	if err != nil {
		return nil, fmt.Errorf("biz: load aws config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = lo.ToPtr(cfg.S3Endpoint)
		}
	})

	return s3fs.NewFsFromClient(cfg.S3Bucket, client), nil
}

func newGcsFs(ctx context.Context, cfg FileStoreConfig) (afero.Fs, error) {
	creds, err := google.CredentialsFromJSON(ctx, []byte(cfg.GCSCredential), storage.ScopeFullControl)
	if err != nil {
		return nil, fmt.Errorf("biz: parse gcp credentials: %w", err)
	}

	client, err := storage.NewClient(ctx, googleoption.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("biz: create gcs client: %w", err)
	}

	fs, err := gcsfs.NewGcsFSFromClient(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("biz: create gcs filesystem: %w", err)
	}

	return afero.NewBasePathFs(fs, cfg.GCSBucket), nil
}

var _ materials.FileStore = (*FileStore)(nil)

// Put writes data under a UUID-derived key nested by course, returning that
// key as the opaque file_ref the Material row stores.
func (s *FileStore) Put(ctx context.Context, courseID, name string, data []byte) (string, error) {
	key := filepath.ToSlash(filepath.Join(courseID, fmt.Sprintf("%s-%s", uuid.NewString(), filepath.Base(name))))

	if err := s.fs.MkdirAll(filepath.Dir(key), 0o777); err != nil {
		return "", fmt.Errorf("biz: create directory for %q: %w", key, err)
	}

	if err := afero.WriteFile(s.fs, key, data, 0o644); err != nil {
		return "", fmt.Errorf("biz: write %q: %w", key, err)
	}

	return key, nil
}

// Get reads back the bytes stored at fileRef.
func (s *FileStore) Get(ctx context.Context, fileRef string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, fileRef)
	if err != nil {
		return nil, fmt.Errorf("biz: read %q: %w", fileRef, err)
	}

	return data, nil
}

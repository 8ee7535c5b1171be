// Package s3store keeps OCR records as JSON objects in an S3 compatible bucket.
package s3store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/DanielPopoola/ocrbot/internal/config"
	"github.com/DanielPopoola/ocrbot/internal/domain"
)

type RecordStore struct {
	client *s3.Client
	bucket string
	prefix string
	logger *slog.Logger
}

// NewRecordStore builds an S3 client from cfg. Static credentials are used
// when both keys are set, otherwise the default AWS credential chain applies.
func NewRecordStore(ctx context.Context, cfg config.S3Config, logger *slog.Logger, optFns ...func(*s3.Options)) (*RecordStore, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	base := func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}
	client := s3.NewFromConfig(awsCfg, append([]func(*s3.Options){base}, optFns...)...)

	logger.Info("using s3 record store", "bucket", cfg.Bucket, "endpoint", cfg.Endpoint, "prefix", cfg.Prefix)

	return &RecordStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: logger,
	}, nil
}

func (s *RecordStore) objectKey(key domain.StorageKey) string {
	return path.Join(s.prefix, "records", string(key)+".json")
}

func (s *RecordStore) listPrefix() string {
	return path.Join(s.prefix, "records") + "/"
}

// Put overwrites the object for the record's key. S3 gives last-writer-wins
// per object.
func (s *RecordStore) Put(ctx context.Context, record *domain.PersistedRecord) error {
	if record == nil || !record.Key.Valid() {
		return domain.NewMissingRequiredFieldError("record key")
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", record.Key, err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(record.Key)),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		s.logger.Error("failed to upload record", "key", record.Key, "error", err)
		return domain.NewStorageUnavailableError(err)
	}
	return nil
}

func (s *RecordStore) Get(ctx context.Context, key domain.StorageKey) (*domain.PersistedRecord, error) {
	if !key.Valid() {
		return nil, domain.NewRecordNotFoundError(key)
	}
	return s.get(ctx, s.objectKey(key), key)
}

func (s *RecordStore) get(ctx context.Context, objectKey string, key domain.StorageKey) (*domain.PersistedRecord, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, domain.NewRecordNotFoundError(key)
		}
		return nil, domain.NewStorageUnavailableError(err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, domain.NewStorageUnavailableError(err)
	}

	var record domain.PersistedRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, domain.NewStorageUnavailableError(fmt.Errorf("decode record %s: %w", key, err))
	}
	return &record, nil
}

type listedObject struct {
	key          string
	lastModified time.Time
}

// List orders objects by their last-modified time, newest first, and fetches
// only the requested page.
func (s *RecordStore) List(ctx context.Context, limit, offset int) ([]*domain.PersistedRecord, error) {
	var objects []listedObject

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.listPrefix()),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, domain.NewStorageUnavailableError(err)
		}
		for _, obj := range page.Contents {
			o := listedObject{key: aws.ToString(obj.Key)}
			if obj.LastModified != nil {
				o.lastModified = *obj.LastModified
			}
			objects = append(objects, o)
		}
	}

	sort.SliceStable(objects, func(i, j int) bool {
		if objects[i].lastModified.Equal(objects[j].lastModified) {
			return objects[i].key > objects[j].key
		}
		return objects[i].lastModified.After(objects[j].lastModified)
	})

	if offset >= len(objects) {
		return []*domain.PersistedRecord{}, nil
	}
	objects = objects[offset:]
	if limit > 0 && limit < len(objects) {
		objects = objects[:limit]
	}

	records := make([]*domain.PersistedRecord, 0, len(objects))
	for _, o := range objects {
		key := domain.StorageKey(strings.TrimSuffix(path.Base(o.key), ".json"))
		record, err := s.get(ctx, o.key, key)
		if domain.IsErrorCode(err, domain.ErrCodeRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *RecordStore) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return domain.NewStorageUnavailableError(err)
	}
	return nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *RecordStore) EnsureBucket(ctx context.Context) error {
	if err := s.Ping(ctx); err == nil {
		return nil
	}

	s.logger.Info("creating bucket", "bucket", s.bucket)
	_, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	return nil
}

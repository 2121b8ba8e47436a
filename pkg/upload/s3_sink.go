package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/socialhub/socialhub-cli/pkg/config"
	"github.com/socialhub/socialhub-cli/pkg/logger"
)

// S3MinPartSize is the smallest part S3 accepts for any but the last part
const S3MinPartSize int64 = 5 << 20

// S3Config points at an S3-compatible endpoint
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// S3ConfigFromConfig reads the s3.* keys
func S3ConfigFromConfig() S3Config {
	return S3Config{
		Endpoint:  config.GetString("s3.endpoint"),
		Region:    config.GetString("s3.region"),
		Bucket:    config.GetString("s3.bucket"),
		AccessKey: config.GetString("s3.access_key"),
		SecretKey: config.GetString("s3.secret_key"),
	}
}

// NewS3Client builds a path-style client with static credentials
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	}), nil
}

// S3Sink writes each range as one part of a multipart upload.
//
// Each part is buffered before it is sent so the SDK can sign and retry
// it. Reading the buffer is what the uploader counts, so progress moves a
// part at a time and speed within a part reflects the local read. Chunk
// sizing is unaffected because it times the whole WriteChunk call.
type S3Sink struct {
	client      *s3.Client
	endpoint    string
	bucket      string
	key         string
	contentType string

	uploadID *string
	parts    []types.CompletedPart
}

// NewS3Sink targets bucket/key through c
func NewS3Sink(c *s3.Client, cfg S3Config, key, contentType string) *S3Sink {
	return &S3Sink{
		client:      c,
		endpoint:    cfg.Endpoint,
		bucket:      cfg.Bucket,
		key:         key,
		contentType: contentType,
	}
}

func (s *S3Sink) MinChunkSize() int64 { return S3MinPartSize }

func (s *S3Sink) Begin(ctx context.Context, total int64) error {
	out, err := s.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		ContentType: aws.String(s.contentType),
	})
	if err != nil {
		return fmt.Errorf("create multipart upload: %w", err)
	}
	s.uploadID = out.UploadId
	s.parts = nil
	logger.Debug("S3 multipart upload begin", "bucket", s.bucket, "key", s.key, "upload_id", aws.ToString(out.UploadId))
	return nil
}

// WriteChunk buffers the range and uploads it as part chunk.Index+1
func (s *S3Sink) WriteChunk(ctx context.Context, chunk Chunk, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	partNumber := int32(chunk.Index + 1)
	out, err := s.client.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key),
		UploadId:      s.uploadID,
		PartNumber:    aws.Int32(partNumber),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("upload part %d: %w", partNumber, err)
	}

	s.parts = append(s.parts, types.CompletedPart{
		ETag:       out.ETag,
		PartNumber: aws.Int32(partNumber),
	})
	return nil
}

func (s *S3Sink) Complete(ctx context.Context) (string, error) {
	if len(s.parts) == 0 {
		// multipart uploads need at least one part
		if err := s.Abort(ctx); err != nil {
			return "", err
		}
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(s.bucket),
			Key:           aws.String(s.key),
			ContentType:   aws.String(s.contentType),
			Body:          bytes.NewReader(nil),
			ContentLength: aws.Int64(0),
		})
		if err != nil {
			return "", fmt.Errorf("put empty object: %w", err)
		}
		return s.location(), nil
	}

	_, err := s.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(s.bucket),
		Key:             aws.String(s.key),
		UploadId:        s.uploadID,
		MultipartUpload: &types.CompletedMultipartUpload{Parts: s.parts},
	})
	if err != nil {
		return "", fmt.Errorf("complete multipart upload: %w", err)
	}
	return s.location(), nil
}

func (s *S3Sink) Abort(ctx context.Context) error {
	if s.uploadID == nil {
		return nil
	}
	_, err := s.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(s.key),
		UploadId: s.uploadID,
	})
	s.uploadID = nil
	if err != nil {
		return fmt.Errorf("abort multipart upload: %w", err)
	}
	return nil
}

func (s *S3Sink) location() string {
	return strings.TrimRight(s.endpoint, "/") + "/" + s.bucket + "/" + s.key
}

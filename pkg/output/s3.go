package output

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
)

// S3Config describes the bucket rendered images are uploaded to
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string // Optional, for S3-compatible stores
	AccessKey string
	SecretKey string
	Prefix    string // Key prefix, e.g. "renders/"
}

// S3ConfigFromEnv reads RAYTRACER_S3_* variables through getenv
func S3ConfigFromEnv(getenv func(string) string) S3Config {
	return S3Config{
		Bucket:    getenv("RAYTRACER_S3_BUCKET"),
		Region:    getenv("RAYTRACER_S3_REGION"),
		Endpoint:  getenv("RAYTRACER_S3_ENDPOINT"),
		AccessKey: getenv("RAYTRACER_S3_ACCESS_KEY"),
		SecretKey: getenv("RAYTRACER_S3_SECRET_KEY"),
		Prefix:    getenv("RAYTRACER_S3_PREFIX"),
	}
}

func (c S3Config) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("s3: bucket is not configured")
	}
	if c.Region == "" {
		return fmt.Errorf("s3: region is not configured")
	}
	return nil
}

// S3Sink uploads encoded images to a bucket
type S3Sink struct {
	uploader s3manageriface.UploaderAPI
	bucket   string
	prefix   string
}

// NewS3Sink creates a session from config. Static credentials are used when
// both keys are set, otherwise the SDK's default chain applies.
func NewS3Sink(config S3Config) (*S3Sink, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	awsConfig := &aws.Config{
		Region: aws.String(config.Region),
	}
	if config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}
	if config.AccessKey != "" && config.SecretKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(config.AccessKey, config.SecretKey, "")
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 session: %w", err)
	}

	return NewS3SinkWithUploader(s3manager.NewUploader(sess), config.Bucket, config.Prefix), nil
}

// NewS3SinkWithUploader wraps an existing uploader
func NewS3SinkWithUploader(uploader s3manageriface.UploaderAPI, bucket, prefix string) *S3Sink {
	return &S3Sink{uploader: uploader, bucket: bucket, prefix: prefix}
}

// Upload encodes img using the format implied by name and stores it under
// the sink's prefix. It returns the object location.
func (s *S3Sink) Upload(ctx context.Context, img image.Image, name string) (string, error) {
	contentType, err := ContentType(name)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := Encode(&buf, img, name); err != nil {
		return "", err
	}

	key := path.Join(s.prefix, name)
	result, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	return result.Location, nil
}

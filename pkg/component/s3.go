package component

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	gerrors "github.com/gallia-dev/gallia/internal/errors"
)

// S3API is the subset of the S3 client used by S3Source.
type S3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source loads component definitions from an S3 bucket.
//
// Example usage:
//
//	client := component.NewS3Client(component.S3Config{Region: "eu-west-1"})
//	src := component.NewS3Source(client, "my-bucket", "components/")
type S3Source struct {
	client S3API
	bucket string
	prefix string
	exts   []string
}

// NewS3Source creates a source reading objects under prefix in bucket.
func NewS3Source(client S3API, bucket, prefix string) *S3Source {
	return &S3Source{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// WithExtensions overrides DefaultExtensions.
func (s *S3Source) WithExtensions(exts ...string) *S3Source {
	s.exts = exts
	return s
}

// Load implements Loader.
func (s *S3Source) Load(ctx context.Context, p string) (Factory, error) {
	name := cleanPath(p)
	if name == "" {
		return nil, ErrNotFound
	}
	for _, candidate := range candidates(name, s.exts) {
		key := s.prefix + candidate
		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if isNotFound(err) {
			continue
		}
		if err != nil {
			return nil, gerrors.New("G020").Withf("s3://%s/%s", s.bucket, key).Wrap(err)
		}
		data, err := io.ReadAll(out.Body)
		out.Body.Close()
		if err != nil {
			return nil, gerrors.New("G020").Withf("s3://%s/%s", s.bucket, key).Wrap(err)
		}
		return ParseDefinition(data, fmt.Sprintf("s3://%s/%s", s.bucket, key))
	}
	return nil, ErrNotFound
}

// List returns the component paths stored under the prefix, without
// extensions, sorted.
func (s *S3Source) List(ctx context.Context) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})

	exts := extensions(s.exts)
	var out []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, gerrors.New("G020").Withf("s3://%s/%s", s.bucket, s.prefix).Wrap(err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			name := strings.TrimPrefix(*obj.Key, s.prefix)
			for _, ext := range exts {
				if strings.HasSuffix(name, ext) {
					out = append(out, strings.TrimSuffix(name, ext))
					break
				}
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var coded interface{ ErrorCode() string }
	if errors.As(err, &coded) {
		switch coded.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

// S3Config configures NewS3Client.
type S3Config struct {
	Region string

	// Endpoint overrides the service endpoint, for S3-compatible stores.
	// Path-style addressing is used when it is set.
	Endpoint string

	// Static credentials. Requests are unsigned when AccessKeyID is empty.
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// NewS3Client creates an S3 client from explicit settings.
func NewS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:      cfg.Region,
		Credentials: aws.AnonymousCredentials{},
	}
	if cfg.AccessKeyID != "" {
		creds := aws.Credentials{
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			SessionToken:    cfg.SessionToken,
			Source:          "gallia",
		}
		opts.Credentials = aws.NewCredentialsCache(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) { return creds, nil }))
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts)
}

package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/couchcryptid/carpark-etl/internal/domain"
)

// S3Config locates one object in an S3-compatible store. Credentials come
// from the default AWS chain (environment, shared config, instance role).
type S3Config struct {
	Region    string
	Endpoint  string // optional, e.g. a MinIO or LocalStack URL
	PathStyle bool
	Bucket    string
	Key       string
}

type objectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Opener reads the dataset from a single S3 object.
type S3Opener struct {
	client objectGetter
	bucket string
	key    string
}

// NewS3Opener loads the default AWS configuration for the region and builds
// an S3 client, honouring a custom endpoint and path-style addressing.
func NewS3Opener(ctx context.Context, cfg S3Config, optFns ...func(*s3.Options)) (*S3Opener, error) {
	if cfg.Bucket == "" || cfg.Key == "" {
		return nil, errors.New("s3 bucket and key required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		for _, fn := range optFns {
			fn(o)
		}
	})
	return &S3Opener{client: client, bucket: cfg.Bucket, key: cfg.Key}, nil
}

// Open fetches the object body. Any failure to reach the object is
// domain.ErrNotFound: a missing bucket or key, denied access, or a transport
// error. The SDK error stays in the chain for errors.As.
func (o *S3Opener) Open(ctx context.Context) (io.ReadCloser, error) {
	out, err := o.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(o.key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrNotFound, o.Location(), err)
		}
		return nil, fmt.Errorf("%w: %s unreachable: %w", domain.ErrNotFound, o.Location(), err)
	}
	return out.Body, nil
}

// Location implements Opener.
func (o *S3Opener) Location() string {
	return s3Scheme + o.bucket + "/" + o.key
}

func isS3NotFound(err error) bool {
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}
	var noBucket *types.NoSuchBucket
	if errors.As(err, &noBucket) {
		return true
	}
	var respErr *awshttp.ResponseError
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound
}

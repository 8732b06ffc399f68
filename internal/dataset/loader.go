package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

var (
	// ErrNotFound is returned when the dataset file or object does not exist
	ErrNotFound = errors.New("dataset file not found")
	// ErrMalformed is returned when the dataset was read but cannot be parsed
	ErrMalformed = errors.New("malformed dataset")
	// ErrInvalidLocation is returned for an empty or unparsable location
	ErrInvalidLocation = errors.New("invalid dataset location")
)

// maxObjectSize bounds how much of a remote dataset is read
const maxObjectSize = 32 << 20

// ObjectGetter is the part of the S3 client the loader uses
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Loader reads datasets from local files or s3://bucket/key locations.
// The S3 client is created on first use from the default AWS config chain.
type Loader struct {
	region string

	mu     sync.Mutex
	client ObjectGetter
}

type LoaderOption func(*Loader)

// WithRegion overrides the AWS region for S3 datasets
func WithRegion(region string) LoaderOption {
	return func(l *Loader) {
		l.region = region
	}
}

// WithS3Client sets the client used for s3:// locations
func WithS3Client(client ObjectGetter) LoaderOption {
	return func(l *Loader) {
		l.client = client
	}
}

func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads and parses the dataset at location
func (l *Loader) Load(ctx context.Context, location string) (*Dataset, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, fmt.Errorf("%w: location is required", ErrInvalidLocation)
	}

	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(location, "s3://") {
		data, err = l.readS3(ctx, location)
	} else {
		data, err = os.ReadFile(location)
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("%w: %s", ErrNotFound, location)
		}
	}
	if err != nil {
		return nil, err
	}

	ds, err := Parse(data, FormatFor(location))
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrMalformed, location, err)
	}
	return ds, nil
}

func (l *Loader) readS3(ctx context.Context, location string) ([]byte, error) {
	bucket, key, err := parseS3Location(location)
	if err != nil {
		return nil, err
	}

	client, err := l.s3Client(ctx)
	if err != nil {
		return nil, err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: %s: %w", ErrNotFound, location, err)
		}
		return nil, fmt.Errorf("failed to fetch %s: %w", location, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, maxObjectSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", location, err)
	}
	if len(data) > maxObjectSize {
		return nil, fmt.Errorf("dataset %s exceeds %d bytes", location, maxObjectSize)
	}
	return data, nil
}

func (l *Loader) s3Client(ctx context.Context) (ObjectGetter, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.client != nil {
		return l.client, nil
	}

	loadOpts := []func(*config.LoadOptions) error{}
	if l.region != "" {
		loadOpts = append(loadOpts, config.WithRegion(l.region))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	l.client = s3.NewFromConfig(awsCfg)
	return l.client, nil
}

func parseS3Location(location string) (string, string, error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", "", fmt.Errorf("%w %s: %w", ErrInvalidLocation, location, err)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("%w: must look like s3://bucket/key, got %s", ErrInvalidLocation, location)
	}
	return u.Host, key, nil
}

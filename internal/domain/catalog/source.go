package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	defaultS3Region    = "us-east-1"
)

// Source produces the raw catalog payload. Open is called exactly once per
// load; the caller closes the reader.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	String() string
}

// HTTPSource fetches the payload with a single GET.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

func (s *HTTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %w", ErrFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: GET %s: status %d", ErrFetch, s.URL, resp.StatusCode)
	}
	return resp.Body, nil
}

func (s *HTTPSource) String() string { return s.URL }

// FileSource reads the payload from the local filesystem.
type FileSource struct {
	Path string
}

func (s *FileSource) Open(_ context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	return f, nil
}

func (s *FileSource) String() string { return "file://" + s.Path }

// ObjectGetter is the slice of the S3 API the S3 source needs.
type ObjectGetter interface {
	GetObjectWithContext(ctx aws.Context, input *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error)
}

// S3Source reads the payload from an object in a bucket.
type S3Source struct {
	Bucket string
	Key    string
	API    ObjectGetter
}

func (s *S3Source) Open(ctx context.Context) (io.ReadCloser, error) {
	out, err := s.API.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: s3 get %s: %w", ErrFetch, s.String(), err)
	}
	return out.Body, nil
}

func (s *S3Source) String() string { return "s3://" + s.Bucket + "/" + s.Key }

// SourceOption tunes NewSource.
type SourceOption func(*sourceOptions)

type sourceOptions struct {
	httpClient *http.Client
	s3Region   string
	s3API      ObjectGetter
}

// WithHTTPClient sets the client used for http(s) sources.
func WithHTTPClient(c *http.Client) SourceOption {
	return func(o *sourceOptions) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// WithS3Region sets the region used when an S3 session has to be created.
func WithS3Region(region string) SourceOption {
	return func(o *sourceOptions) {
		if region != "" {
			o.s3Region = region
		}
	}
}

// WithS3API injects the S3 client, skipping session creation.
func WithS3API(api ObjectGetter) SourceOption {
	return func(o *sourceOptions) {
		if api != nil {
			o.s3API = api
		}
	}
}

// NewSource picks a Source from raw: http(s)://, file://, s3://bucket/key, or
// a bare filesystem path.
func NewSource(raw string, opts ...SourceOption) (Source, error) {
	o := sourceOptions{s3Region: defaultS3Region}
	for _, opt := range opts {
		opt(&o)
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrUnsupportedSource)
	}
	if !strings.Contains(raw, "://") {
		return &FileSource{Path: raw}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedSource, err)
	}

	switch u.Scheme {
	case "http", "https":
		return &HTTPSource{URL: raw, Client: o.httpClient}, nil
	case "file":
		path := u.Path
		if u.Host != "" {
			// file://relative/path keeps its first segment in Host.
			path = u.Host + u.Path
		}
		return &FileSource{Path: path}, nil
	case "s3":
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return nil, fmt.Errorf("%w: s3 source needs bucket and key: %s", ErrUnsupportedSource, raw)
		}
		api := o.s3API
		if api == nil {
			sess, err := session.NewSession(&aws.Config{Region: aws.String(o.s3Region)})
			if err != nil {
				return nil, fmt.Errorf("creating s3 session: %w", err)
			}
			api = s3.New(sess)
		}
		return &S3Source{Bucket: u.Host, Key: key, API: api}, nil
	default:
		return nil, fmt.Errorf("%w: scheme %q", ErrUnsupportedSource, u.Scheme)
	}
}

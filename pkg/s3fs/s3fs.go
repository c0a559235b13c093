// Package s3fs exposes an S3 bucket (or a prefix within one) through
// the vfs contract. Directories are zero-byte marker objects whose
// keys end in '/'; prefixes with objects below them count as
// directories even without a marker. File writes are staged in a
// temporary host file and uploaded on close.
package s3fs

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/anyfs/anyfs/internal/breaker"
	"github.com/anyfs/anyfs/internal/retry"
	"github.com/anyfs/anyfs/pkg/fserrors"
	"github.com/anyfs/anyfs/pkg/fspath"
	"github.com/anyfs/anyfs/pkg/info"
	"github.com/anyfs/anyfs/pkg/vfs"
)

// Client is the slice of the S3 API the filesystem uses. *s3.Client
// satisfies it; tests substitute a fake.
type Client interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3FS is a filesystem over one bucket.
type S3FS struct {
	client Client
	bucket string
	prefix string // "" or "some/dir/"

	retryer *retry.Retryer
	breaker *breaker.Breaker
	logger  *zap.Logger

	mu     sync.Mutex
	closed bool
}

type options struct {
	region      string
	endpoint    string
	pathStyle   bool
	accessKey   string
	secretKey   string
	sessionToken string
	prefix      string
	retryCfg    *retry.Config
	breakerCfg  *breaker.Config
	logger      *zap.Logger
}

// Option configures New.
type Option func(*options)

// WithRegion pins the AWS region instead of resolving it from the
// environment.
func WithRegion(region string) Option {
	return func(o *options) { o.region = region }
}

// WithEndpoint points the client at a custom S3 endpoint, for
// S3-compatible stores.
func WithEndpoint(endpoint string) Option {
	return func(o *options) { o.endpoint = endpoint }
}

// WithPathStyle uses path-style addressing, which most S3-compatible
// stores require.
func WithPathStyle() Option {
	return func(o *options) { o.pathStyle = true }
}

// WithStaticCredentials bypasses the default credential chain.
func WithStaticCredentials(accessKey, secretKey, sessionToken string) Option {
	return func(o *options) {
		o.accessKey = accessKey
		o.secretKey = secretKey
		o.sessionToken = sessionToken
	}
}

// WithPrefix roots the filesystem at a key prefix inside the bucket.
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithRetry overrides the backoff used for remote calls.
func WithRetry(cfg *retry.Config) Option {
	return func(o *options) { o.retryCfg = cfg }
}

// WithBreaker overrides the circuit breaker guarding remote calls.
func WithBreaker(cfg *breaker.Config) Option {
	return func(o *options) { o.breakerCfg = cfg }
}

// WithLogger attaches a logger for remote call diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New connects to a bucket using the default AWS credential chain,
// adjusted by options.
func New(ctx context.Context, bucket string, opts ...Option) (*S3FS, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	var loadOpts []func(*awsconfig.LoadOptions) error
	if o.region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(o.region))
	}
	if o.accessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.accessKey, o.secretKey, o.sessionToken)))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fserrors.CreateFailed("unable to load AWS configuration", err)
	}
	client := s3.NewFromConfig(cfg, func(so *s3.Options) {
		if o.endpoint != "" {
			so.BaseEndpoint = aws.String(o.endpoint)
		}
		so.UsePathStyle = o.pathStyle
	})
	return newFS(client, bucket, &o), nil
}

// NewWithClient builds a filesystem over an existing client. Tests
// and callers with custom client middleware use this.
func NewWithClient(client Client, bucket string, opts ...Option) *S3FS {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return newFS(client, bucket, &o)
}

func newFS(client Client, bucket string, o *options) *S3FS {
	prefix := strings.Trim(o.prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	logger := o.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3FS{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		retryer: retry.New(o.retryCfg),
		breaker: breaker.New(o.breakerCfg),
		logger:  logger,
	}
}

// do runs one remote call under the retryer and circuit breaker. Only
// transport failures trip the breaker or trigger a retry; logical
// errors pass straight through.
func (s *S3FS) do(ctx context.Context, op func() error) error {
	return s.retryer.Do(ctx, func() error {
		return s.breaker.Do(op)
	})
}

func (s *S3FS) Meta() vfs.Meta {
	return vfs.Meta{
		InvalidPathChars: "\x00",
		Network:          true,
		ThreadSafe:       true,
	}
}

func (s *S3FS) validate(path string) (string, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return "", fserrors.Closed()
	}
	return vfs.ValidatePath(s, path)
}

// key maps a normalized path to an object key. The root maps to the
// bare prefix.
func (s *S3FS) key(norm string) string {
	return s.prefix + fspath.Rel(norm)
}

// dirKey is the marker key for a directory path.
func (s *S3FS) dirKey(norm string) string {
	if norm == "/" {
		return s.prefix
	}
	return s.key(norm) + "/"
}

// stat classifies a path as file, directory or missing, fetching file
// metadata along the way.
type statResult struct {
	isDir    bool
	size     int64
	modified time.Time
}

func (s *S3FS) stat(ctx context.Context, norm string) (*statResult, error) {
	if norm == "/" {
		return &statResult{isDir: true}, nil
	}
	// File object first.
	var head *s3.HeadObjectOutput
	err := s.do(ctx, func() error {
		var err error
		head, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.key(norm)),
		})
		return s.translate(err, norm, "getinfo")
	})
	if err == nil {
		result := &statResult{}
		if head.ContentLength != nil {
			result.size = *head.ContentLength
		}
		if head.LastModified != nil {
			result.modified = *head.LastModified
		}
		return result, nil
	}
	if !fserrors.IsNotFound(err) {
		return nil, err
	}
	// Directory marker next.
	err = s.do(ctx, func() error {
		_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.dirKey(norm)),
		})
		return s.translate(err, norm, "getinfo")
	})
	if err == nil {
		return &statResult{isDir: true}, nil
	}
	if !fserrors.IsNotFound(err) {
		return nil, err
	}
	// Finally, an implicit directory: any object under the prefix.
	var list *s3.ListObjectsV2Output
	err = s.do(ctx, func() error {
		var err error
		list, err = s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:  aws.String(s.bucket),
			Prefix:  aws.String(s.dirKey(norm)),
			MaxKeys: aws.Int32(1),
		})
		return s.translate(err, norm, "getinfo")
	})
	if err != nil {
		return nil, err
	}
	if len(list.Contents) > 0 || len(list.CommonPrefixes) > 0 {
		return &statResult{isDir: true}, nil
	}
	return nil, fserrors.NotFound(norm)
}

func (s *S3FS) GetInfo(ctx context.Context, path string, namespaces ...string) (*info.Info, error) {
	norm, err := s.validate(path)
	if err != nil {
		return nil, err
	}
	st, err := s.stat(ctx, norm)
	if err != nil {
		return nil, err
	}
	name := fspath.Basename(norm)
	if norm == "/" {
		name = ""
	}
	inf := &info.Info{Basic: info.Basic{Name: name, IsDir: st.isDir}}
	if info.Requested(namespaces, info.NamespaceDetails) {
		typ := info.TypeFile
		if st.isDir {
			typ = info.TypeDirectory
		}
		inf.Details = &info.Details{
			Type:     typ,
			Size:     st.size,
			Modified: st.modified,
		}
	}
	return inf, nil
}

func (s *S3FS) ListDir(ctx context.Context, path string) ([]string, error) {
	norm, err := s.validate(path)
	if err != nil {
		return nil, err
	}
	st, err := s.stat(ctx, norm)
	if err != nil {
		return nil, err
	}
	if !st.isDir {
		return nil, fserrors.DirectoryExpected(norm)
	}
	prefix := s.dirKey(norm)
	var (
		names []string
		token *string
	)
	for {
		var page *s3.ListObjectsV2Output
		err := s.do(ctx, func() error {
			var err error
			page, err = s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
				Bucket:            aws.String(s.bucket),
				Prefix:            aws.String(prefix),
				Delimiter:         aws.String("/"),
				ContinuationToken: token,
			})
			return s.translate(err, norm, "listdir")
		})
		if err != nil {
			return nil, err
		}
		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), "/")
			if name != "" {
				names = append(names, name)
			}
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if name != "" && !strings.Contains(name, "/") {
				names = append(names, name)
			}
		}
		if page.NextContinuationToken == nil {
			break
		}
		token = page.NextContinuationToken
	}
	return names, nil
}

func (s *S3FS) MakeDir(ctx context.Context, path string, perm os.FileMode, recreate bool) error {
	norm, err := s.validate(path)
	if err != nil {
		return err
	}
	if norm == "/" {
		if recreate {
			return nil
		}
		return fserrors.DirectoryExists(norm)
	}
	parent, err := s.stat(ctx, fspath.Dirname(norm))
	if err != nil {
		if fserrors.IsNotFound(err) {
			return fserrors.NotFound(norm)
		}
		return err
	}
	if !parent.isDir {
		return fserrors.DirectoryExpected(fspath.Dirname(norm))
	}
	if st, err := s.stat(ctx, norm); err == nil {
		if !recreate {
			return fserrors.DirectoryExists(norm)
		}
		if !st.isDir {
			return fserrors.DirectoryExpected(norm)
		}
		return nil
	} else if !fserrors.IsNotFound(err) {
		return err
	}
	return s.do(ctx, func() error {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.dirKey(norm)),
			Body:   strings.NewReader(""),
		})
		return s.translate(err, norm, "makedir")
	})
}

func (s *S3FS) Remove(ctx context.Context, path string) error {
	norm, err := s.validate(path)
	if err != nil {
		return err
	}
	st, err := s.stat(ctx, norm)
	if err != nil {
		return err
	}
	if st.isDir {
		return fserrors.FileExpected(norm)
	}
	return s.do(ctx, func() error {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.key(norm)),
		})
		return s.translate(err, norm, "remove")
	})
}

func (s *S3FS) RemoveDir(ctx context.Context, path string) error {
	norm, err := s.validate(path)
	if err != nil {
		return err
	}
	if norm == "/" {
		return fserrors.RemoveRoot()
	}
	st, err := s.stat(ctx, norm)
	if err != nil {
		return err
	}
	if !st.isDir {
		return fserrors.DirectoryExpected(norm)
	}
	// Empty means nothing under the prefix besides the marker.
	prefix := s.dirKey(norm)
	var list *s3.ListObjectsV2Output
	err = s.do(ctx, func() error {
		var err error
		list, err = s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:  aws.String(s.bucket),
			Prefix:  aws.String(prefix),
			MaxKeys: aws.Int32(2),
		})
		return s.translate(err, norm, "removedir")
	})
	if err != nil {
		return err
	}
	for _, obj := range list.Contents {
		if aws.ToString(obj.Key) != prefix {
			return fserrors.DirectoryNotEmpty(norm)
		}
	}
	return s.do(ctx, func() error {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(prefix),
		})
		return s.translate(err, norm, "removedir")
	})
}

// SetInfo validates that the resource exists. S3 object metadata is
// immutable in place, so timestamp updates are accepted and ignored.
func (s *S3FS) SetInfo(ctx context.Context, path string, raw info.Raw) error {
	norm, err := s.validate(path)
	if err != nil {
		return err
	}
	_, err = s.stat(ctx, norm)
	return err
}

func (s *S3FS) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

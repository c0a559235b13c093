package opener

import (
	"context"
	"strings"

	"github.com/anyfs/anyfs/pkg/memfs"
	"github.com/anyfs/anyfs/pkg/osfs"
	"github.com/anyfs/anyfs/pkg/s3fs"
	"github.com/anyfs/anyfs/pkg/vfs"
)

// memOpener serves mem:// URLs with a fresh in-memory filesystem.
type memOpener struct{}

func (memOpener) Protocols() []string { return []string{"mem"} }

func (memOpener) OpenFS(ctx context.Context, result *ParseResult, create bool) (vfs.FS, error) {
	return memfs.New(), nil
}

// osOpener serves file:// and osfs:// URLs rooted at the resource
// path.
type osOpener struct{}

func (osOpener) Protocols() []string { return []string{"file", "osfs"} }

func (osOpener) OpenFS(ctx context.Context, result *ParseResult, create bool) (vfs.FS, error) {
	root := result.Resource
	if root == "" {
		root = "."
	}
	if create {
		return osfs.NewCreate(root, 0o755)
	}
	return osfs.New(root)
}

// tempOpener serves temp:// URLs with a throwaway directory removed on
// Close. The resource is used as the directory name prefix.
type tempOpener struct{}

func (tempOpener) Protocols() []string { return []string{"temp"} }

func (tempOpener) OpenFS(ctx context.Context, result *ParseResult, create bool) (vfs.FS, error) {
	return osfs.NewTemp(result.Resource)
}

// s3Opener serves s3://bucket/prefix URLs. Credentials come from the
// URL's user:pass block when present, otherwise from the ambient AWS
// configuration. Recognized params: region, endpoint, path_style.
type s3Opener struct{}

func (s3Opener) Protocols() []string { return []string{"s3"} }

func (s3Opener) OpenFS(ctx context.Context, result *ParseResult, create bool) (vfs.FS, error) {
	bucket, prefix, _ := strings.Cut(result.Resource, "/")
	var opts []s3fs.Option
	if prefix != "" {
		opts = append(opts, s3fs.WithPrefix(prefix))
	}
	if result.Username != "" {
		opts = append(opts, s3fs.WithStaticCredentials(result.Username, result.Password, ""))
	}
	if region := result.Params["region"]; region != "" {
		opts = append(opts, s3fs.WithRegion(region))
	}
	if endpoint := result.Params["endpoint"]; endpoint != "" {
		opts = append(opts, s3fs.WithEndpoint(endpoint))
	}
	if _, ok := result.Params["path_style"]; ok {
		opts = append(opts, s3fs.WithPathStyle())
	}
	return s3fs.New(ctx, bucket, opts...)
}

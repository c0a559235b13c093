package s3fs

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/anyfs/anyfs/pkg/fserrors"
)

// translate folds AWS SDK errors into the error taxonomy. Anything
// unrecognized from a remote call becomes a retryable remote
// connection error.
func (s *S3FS) translate(err error, path, op string) error {
	if err == nil {
		return nil
	}
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return fserrors.NotFound(path)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fserrors.Timeout(op, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "404":
			return fserrors.NotFound(path)
		case "AccessDenied":
			return fserrors.PermissionDenied(op, err)
		case "RequestTimeout":
			return fserrors.Timeout(op, err)
		}
	}
	return fserrors.RemoteConnection(op, err)
}

package grpcstore

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/waelchateur/ApkSignatureKill/artifact"
)

// toStatus maps store errors onto gRPC status codes for the wire.
func toStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, artifact.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, artifact.ErrInvalidID):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, artifact.ErrIDMismatch):
		return status.Error(codes.DataLoss, err.Error())
	case errors.Is(err, artifact.ErrImmutable):
		return status.Error(codes.AlreadyExists, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// fromStatus is the client-side inverse of toStatus.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.NotFound:
		return artifact.ErrNotFound
	case codes.InvalidArgument:
		return artifact.ErrInvalidID
	case codes.DataLoss:
		return artifact.ErrIDMismatch
	case codes.AlreadyExists:
		return artifact.ErrImmutable
	default:
		return err
	}
}

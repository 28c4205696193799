package grpcstore

import (
	"context"

	"github.com/apex/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/waelchateur/ApkSignatureKill/artifact"
)

// Server exposes an artifact.Store over the Store service. Identifiers are
// recomputed on both sides so a faulty backend cannot return foreign bytes.
type Server struct {
	UnimplementedStoreServer
	Store  artifact.Store
	Logger log.Interface
}

func (s *Server) logger() log.Interface {
	if s.Logger == nil {
		return log.Log
	}
	return s.Logger
}

func (s *Server) Put(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	b := in.GetValue()
	want, err := artifact.ID(b)
	if err != nil {
		return nil, status.Error(codes.Internal, "id computation failed")
	}
	id, err := s.Store.Put(ctx, b)
	if err != nil {
		s.logger().WithError(err).Warn("put failed")
		return nil, toStatus(err)
	}
	if !id.Equals(want) {
		return nil, toStatus(artifact.ErrIDMismatch)
	}
	s.logger().WithFields(log.Fields{"cid": id.String(), "bytes": len(b)}).Debug("stored artifact")
	return wrapperspb.String(id.String()), nil
}

func (s *Server) Get(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	id, err := artifact.Parse(in.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	b, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	if err := artifact.Check(id, b); err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.Bytes(b), nil
}

func (s *Server) Has(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	id, err := artifact.Parse(in.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	ok, err := s.Store.Has(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.Bool(ok), nil
}

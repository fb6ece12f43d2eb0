package grpckv

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"contractum.io/stash/storage"
)

// Server exposes a storage.KV over the KV gRPC service.
type Server struct {
	UnimplementedKVServer
	KV storage.KV
}

func (s *Server) ready() error {
	if s == nil || s.KV == nil {
		return status.Error(codes.FailedPrecondition, "missing KV backend")
	}
	return nil
}

func (s *Server) Get(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	_ = ctx
	if err := s.ready(); err != nil {
		return nil, err
	}
	v, err := s.KV.Get(in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bytes(v), nil
}

func (s *Server) Put(ctx context.Context, in *wrapperspb.BytesValue) (*emptypb.Empty, error) {
	_ = ctx
	if err := s.ready(); err != nil {
		return nil, err
	}
	key, value, err := DecodeEntry(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.KV.Put(key, value); err != nil {
		return nil, mapErr(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) Has(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BoolValue, error) {
	_ = ctx
	if err := s.ready(); err != nil {
		return nil, err
	}
	return wrapperspb.Bool(s.KV.Has(in.GetValue())), nil
}

func (s *Server) Delete(ctx context.Context, in *wrapperspb.BytesValue) (*emptypb.Empty, error) {
	_ = ctx
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := s.KV.Delete(in.GetValue()); err != nil {
		return nil, mapErr(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) Scan(in *wrapperspb.BytesValue, stream KV_ScanServer) error {
	if err := s.ready(); err != nil {
		return err
	}
	err := s.KV.Scan(in.GetValue(), func(key, value []byte) error {
		return stream.Send(wrapperspb.Bytes(EncodeEntry(key, value)))
	})
	if err != nil {
		return mapErr(err)
	}
	return nil
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case storage.IsNotFound(err):
		return status.Error(codes.NotFound, storage.ErrNotFound.Error())
	case storage.IsCorrupted(err):
		return status.Error(codes.DataLoss, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

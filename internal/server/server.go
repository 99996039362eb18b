// Package server exposes the orchestration engine over gRPC.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/agrovoice/agrovoice/internal/engine"
	"github.com/agrovoice/agrovoice/pkg/session"
	"github.com/agrovoice/agrovoice/proto"
)

// Server is the gRPC front for the advisory engine.
type Server struct {
	proto.UnimplementedAdvisoryServiceServer

	engine *engine.Engine
	store  *session.Store
	grpc   *grpc.Server
}

// New creates a server over the engine and session store.
func New(eng *engine.Engine, store *session.Store) *Server {
	return &Server{engine: eng, store: store}
}

// Analyze handles one user turn.
func (s *Server) Analyze(ctx context.Context, req *proto.AnalyzeRequest) (*proto.AnalyzeReply, error) {
	if req.SessionID == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id is required")
	}

	reply, err := s.engine.Analyze(ctx, engine.Request{
		SessionID: req.SessionID,
		Text:      req.Text,
		AudioRef:  req.AudioRef,
		Image:     req.Image,
	})
	if err != nil {
		if errors.Is(err, engine.ErrEmptyRequest) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return nil, status.Errorf(codes.Internal, "analyze: %v", err)
	}

	return &proto.AnalyzeReply{
		ResponseText: reply.ResponseText,
		Intent:       string(reply.Intent),
		Modality:     string(reply.Modality),
		LanguageCode: reply.Language.Code,
		LanguageName: reply.Language.Name,
		Transcript:   reply.Transcript,
	}, nil
}

// SessionStats reports metadata for an existing session. It never creates a
// session.
func (s *Server) SessionStats(ctx context.Context, req *proto.SessionStatsRequest) (*proto.SessionStatsReply, error) {
	if req.SessionID == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id is required")
	}

	meta, err := s.store.Stats(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return nil, status.Errorf(codes.NotFound, "session %s not found", req.SessionID)
		}
		return nil, status.Errorf(codes.Internal, "session stats: %v", err)
	}

	return &proto.SessionStatsReply{
		SessionID:         meta.ID,
		CreatedAt:         meta.CreatedAt.Unix(),
		LastActivity:      meta.LastActivity.Unix(),
		MessageCount:      int32(meta.MessageCount),
		UserMessages:      int32(meta.UserMessageCount),
		AssistantMessages: int32(meta.AssistantMessageCount),
		Context:           meta.Context,
	}, nil
}

// Serve listens on addr and blocks until Stop is called or the listener
// fails.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	s.grpc = grpc.NewServer()
	proto.RegisterAdvisoryServiceServer(s.grpc, s)

	log.Printf("advisory service listening on %s", addr)
	return s.grpc.Serve(lis)
}

// Stop gracefully stops the gRPC server.
func (s *Server) Stop() {
	if s.grpc != nil {
		s.grpc.GracefulStop()
	}
}

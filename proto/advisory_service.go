package proto

import (
	"context"

	"google.golang.org/grpc"
)

// Stub types for the AdvisoryService gRPC surface
// TODO: Replace with generated protobuf code

// AnalyzeRequest carries one user turn. At least one of Text, AudioRef, or
// Image must be set; when several are set, image wins over audio over text.
type AnalyzeRequest struct {
	SessionID string
	Text      string
	AudioRef  string // path to an audio file reachable by the server
	Image     []byte // raw image bytes
}

// AnalyzeReply is the assistant's answer for one turn.
type AnalyzeReply struct {
	ResponseText string
	Intent       string
	Modality     string
	LanguageCode string
	LanguageName string
	Transcript   string // transcription of voice input, when applicable
}

// SessionStatsRequest asks for one session's metadata.
type SessionStatsRequest struct {
	SessionID string
}

// SessionStatsReply summarizes a session without its transcript.
type SessionStatsReply struct {
	SessionID         string
	CreatedAt         int64 // unix seconds
	LastActivity      int64 // unix seconds
	MessageCount      int32
	UserMessages      int32
	AssistantMessages int32
	Context           map[string]string
}

// AdvisoryServiceClient is the client interface for the advisory service
type AdvisoryServiceClient interface {
	Analyze(ctx context.Context, in *AnalyzeRequest, opts ...grpc.CallOption) (*AnalyzeReply, error)
	SessionStats(ctx context.Context, in *SessionStatsRequest, opts ...grpc.CallOption) (*SessionStatsReply, error)
}

type advisoryServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAdvisoryServiceClient creates a new AdvisoryServiceClient
func NewAdvisoryServiceClient(cc grpc.ClientConnInterface) AdvisoryServiceClient {
	return &advisoryServiceClient{cc}
}

func (c *advisoryServiceClient) Analyze(ctx context.Context, in *AnalyzeRequest, opts ...grpc.CallOption) (*AnalyzeReply, error) {
	out := new(AnalyzeReply)
	err := c.cc.Invoke(ctx, "/agrovoice.AdvisoryService/Analyze", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *advisoryServiceClient) SessionStats(ctx context.Context, in *SessionStatsRequest, opts ...grpc.CallOption) (*SessionStatsReply, error) {
	out := new(SessionStatsReply)
	err := c.cc.Invoke(ctx, "/agrovoice.AdvisoryService/SessionStats", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AdvisoryServiceServer is the server interface for the advisory service
type AdvisoryServiceServer interface {
	Analyze(context.Context, *AnalyzeRequest) (*AnalyzeReply, error)
	SessionStats(context.Context, *SessionStatsRequest) (*SessionStatsReply, error)
}

// UnimplementedAdvisoryServiceServer provides default implementations
type UnimplementedAdvisoryServiceServer struct{}

func (UnimplementedAdvisoryServiceServer) Analyze(context.Context, *AnalyzeRequest) (*AnalyzeReply, error) {
	return nil, nil
}

func (UnimplementedAdvisoryServiceServer) SessionStats(context.Context, *SessionStatsRequest) (*SessionStatsReply, error) {
	return nil, nil
}

// _AdvisoryService_Analyze_Handler is the handler for the Analyze RPC method
func _AdvisoryService_Analyze_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(AnalyzeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdvisoryServiceServer).Analyze(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/agrovoice.AdvisoryService/Analyze",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AdvisoryServiceServer).Analyze(ctx, req.(*AnalyzeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// _AdvisoryService_SessionStats_Handler is the handler for the SessionStats RPC method
func _AdvisoryService_SessionStats_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(SessionStatsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdvisoryServiceServer).SessionStats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/agrovoice.AdvisoryService/SessionStats",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AdvisoryServiceServer).SessionStats(ctx, req.(*SessionStatsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// RegisterAdvisoryServiceServer registers the advisory service with gRPC
func RegisterAdvisoryServiceServer(s grpc.ServiceRegistrar, srv AdvisoryServiceServer) {
	// Stub implementation - would be generated by protoc
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: "agrovoice.AdvisoryService",
		HandlerType: (*AdvisoryServiceServer)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "Analyze",
				Handler:    _AdvisoryService_Analyze_Handler,
			},
			{
				MethodName: "SessionStats",
				Handler:    _AdvisoryService_SessionStats_Handler,
			},
		},
		Metadata: "advisory_service.proto",
	}, srv)
}

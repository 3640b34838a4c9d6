package rush

import (
	"context"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	StreamServiceName = "tableside.rush.RushStatusStream"
	WatchMethod       = "/" + StreamServiceName + "/Watch"
)

type rushStreamHandler interface {
	Watch(*emptypb.Empty, grpc.ServerStream) error
}

// StreamServiceDesc describes the server-streaming Watch RPC. Requests are
// google.protobuf.Empty, responses google.protobuf.Struct.
var StreamServiceDesc = grpc.ServiceDesc{
	ServiceName: StreamServiceName,
	HandlerType: (*rushStreamHandler)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       watchHandler,
			ServerStreams: true,
		},
	},
	Metadata: "tableside/rush/stream.proto",
}

func watchHandler(srv interface{}, stream grpc.ServerStream) error {
	req := new(emptypb.Empty)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(rushStreamHandler).Watch(req, stream)
}

type statusReader interface {
	Current() (Status, bool)
}

// StreamServer pushes rush status changes to gRPC subscribers.
type StreamServer struct {
	status statusReader
	logger apt.Logger

	mu          sync.RWMutex
	subscribers map[string]chan *structpb.Struct
}

func NewStreamServer(status statusReader, logger apt.Logger) *StreamServer {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &StreamServer{
		status:      status,
		logger:      logger,
		subscribers: make(map[string]chan *structpb.Struct),
	}
}

// RegisterGRPCService registers this service with the gRPC server (apt.GRPCServiceRegistrar interface)
func (s *StreamServer) RegisterGRPCService(server *grpc.Server) {
	server.RegisterService(&StreamServiceDesc, s)
}

// Watch sends the current status on connect and every change afterwards.
func (s *StreamServer) Watch(_ *emptypb.Empty, stream grpc.ServerStream) error {
	ctx := stream.Context()
	subscriberID := uuid.NewString()

	s.logger.Info("new rush status subscriber", "subscriber_id", subscriberID)

	ch := make(chan *structpb.Struct, 16)
	s.mu.Lock()
	s.subscribers[subscriberID] = ch
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.subscribers, subscriberID)
		s.mu.Unlock()
		s.logger.Info("rush status subscriber disconnected", "subscriber_id", subscriberID)
	}()

	if s.status != nil {
		if st, ok := s.status.Current(); ok {
			msg, err := StatusToStruct(st)
			if err != nil {
				return err
			}
			if err := stream.SendMsg(msg); err != nil {
				s.logger.Errorf("failed to send initial rush status: %v", err)
				return err
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-ch:
			if err := stream.SendMsg(msg); err != nil {
				s.logger.Errorf("failed to send rush status: %v", err)
				return err
			}
		}
	}
}

// Broadcast fans next out to every subscriber. Slow subscribers miss updates.
// Its signature matches Listener.
func (s *StreamServer) Broadcast(_ context.Context, _, next Status) {
	msg, err := StatusToStruct(next)
	if err != nil {
		s.logger.Error("cannot encode rush status", "error", err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for subscriberID, ch := range s.subscribers {
		select {
		case ch <- msg:
		default:
			s.logger.Info("subscriber channel full, dropping rush status", "subscriber_id", subscriberID)
		}
	}
}

func (s *StreamServer) subscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

func StatusToStruct(st Status) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"ordersInProgress":      st.OrdersInProgress,
		"isRushMode":            st.IsRushMode,
		"thresholdMinutes":      st.ThresholdMinutes,
		"cumulativePrepMinutes": st.CumulativePrepMinutes,
		"checkedAt":             st.CheckedAt.UTC().Format(time.RFC3339Nano),
	})
}

func StatusFromStruct(msg *structpb.Struct) Status {
	fields := msg.GetFields()
	st := Status{
		OrdersInProgress:      int(fields["ordersInProgress"].GetNumberValue()),
		IsRushMode:            fields["isRushMode"].GetBoolValue(),
		ThresholdMinutes:      int(fields["thresholdMinutes"].GetNumberValue()),
		CumulativePrepMinutes: int(fields["cumulativePrepMinutes"].GetNumberValue()),
	}
	if ts, err := time.Parse(time.RFC3339Nano, fields["checkedAt"].GetStringValue()); err == nil {
		st.CheckedAt = ts
	}
	return st
}

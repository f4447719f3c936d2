package vin

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// DefaultAddress is where FuseVin listens unless configured otherwise.
const DefaultAddress = "localhost:50051"

// DefaultServiceName is the fully qualified gRPC service name.
const DefaultServiceName = "vin.FuseVin"

// GRPCService is a Service backed by a FuseVin server.
type GRPCService struct {
	conn    *grpc.ClientConn
	service string

	mu  sync.Mutex
	ids map[string]puppetID
}

// GRPCOption configures a GRPCService.
type GRPCOption func(*grpcConfig)

type grpcConfig struct {
	service  string
	dialOpts []grpc.DialOption
}

// WithServiceName overrides DefaultServiceName.
func WithServiceName(name string) GRPCOption {
	return func(c *grpcConfig) {
		if name != "" {
			c.service = name
		}
	}
}

// WithDialOptions appends grpc dial options, e.g. a custom dialer in tests.
func WithDialOptions(opts ...grpc.DialOption) GRPCOption {
	return func(c *grpcConfig) {
		c.dialOpts = append(c.dialOpts, opts...)
	}
}

// NewGRPCService creates a client for the FuseVin server at target. No
// connection is made until the first call.
func NewGRPCService(target string, opts ...GRPCOption) (*GRPCService, error) {
	cfg := &grpcConfig{service: DefaultServiceName}
	for _, opt := range opts {
		opt(cfg)
	}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(wireCodec{})),
	}, cfg.dialOpts...)

	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("virtual input client for %s: %w", target, err)
	}
	return &GRPCService{
		conn:    conn,
		service: cfg.service,
		ids:     make(map[string]puppetID),
	}, nil
}

// Close closes the underlying connection.
func (s *GRPCService) Close() error {
	return s.conn.Close()
}

func (s *GRPCService) method(name string) string {
	return "/" + s.service + "/" + name
}

func (s *GRPCService) lookup(id string) puppetID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pid, ok := s.ids[id]; ok {
		return pid
	}
	return puppetID{text: id}
}

// CreateSession calls CreatePuppet.
func (s *GRPCService) CreateSession(ctx context.Context) (Session, error) {
	var reply puppetMsg
	if err := s.conn.Invoke(ctx, s.method("CreatePuppet"), &emptyMsg{}, &reply); err != nil {
		return Session{}, err
	}
	if reply.vinFilename == "" {
		return Session{}, fmt.Errorf("puppet %q has no vin_filename", reply.id.text)
	}

	s.mu.Lock()
	s.ids[reply.id.text] = reply.id
	s.mu.Unlock()

	return Session{ID: reply.id.text, Path: reply.vinFilename}, nil
}

// SubscribeInputRequests calls the server-streaming StartStdinNotify.
// Cancelling ctx closes the stream.
func (s *GRPCService) SubscribeInputRequests(ctx context.Context, id string) (NotificationStream, error) {
	desc := &grpc.StreamDesc{StreamName: "StartStdinNotify", ServerStreams: true}
	cs, err := s.conn.NewStream(ctx, desc, s.method("StartStdinNotify"))
	if err != nil {
		return nil, err
	}
	if err := cs.SendMsg(&idRequest{id: s.lookup(id)}); err != nil {
		return nil, err
	}
	if err := cs.CloseSend(); err != nil {
		return nil, err
	}
	return &grpcStream{cs: cs}, nil
}

type grpcStream struct {
	cs grpc.ClientStream
}

// Recv discards the notification body; its arrival is the signal.
func (g *grpcStream) Recv() error {
	return g.cs.RecvMsg(&emptyMsg{})
}

// SupplyInput calls SupplyStdinContent.
func (s *GRPCService) SupplyInput(ctx context.Context, id string, payload []byte) error {
	req := &stdinContentMsg{id: s.lookup(id), payload: payload}
	return s.conn.Invoke(ctx, s.method("SupplyStdinContent"), req, &emptyMsg{})
}

// DestroySession calls DestroyPuppet.
func (s *GRPCService) DestroySession(ctx context.Context, id string) error {
	err := s.conn.Invoke(ctx, s.method("DestroyPuppet"), &idRequest{id: s.lookup(id)}, &emptyMsg{})

	s.mu.Lock()
	delete(s.ids, id)
	s.mu.Unlock()
	return err
}

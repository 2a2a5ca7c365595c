package router

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"github.com/fortiblox/X1-Conduit/pkg/xcm"
	"github.com/fortiblox/X1-Conduit/pkg/xcm/executor"
)

// UplinkConfig configures the gRPC delivery client.
type UplinkConfig struct {
	// Endpoint is the relay's gRPC address.
	Endpoint string

	// UseTLS enables transport security.
	UseTLS bool

	// MaxMessageSize bounds the encoded message size in bytes, both for
	// the transport and for Validate.
	MaxMessageSize int

	// KeepaliveTime is the interval between keepalive pings.
	KeepaliveTime time.Duration

	// KeepaliveTimeout is how long to wait for a ping ack.
	KeepaliveTimeout time.Duration

	// DeliverTimeout bounds one delivery RPC.
	DeliverTimeout time.Duration

	// Fees prices deliveries through this uplink.
	Fees FeeSchedule
}

// DefaultUplinkConfig returns default configuration for an endpoint.
func DefaultUplinkConfig(endpoint string) UplinkConfig {
	return UplinkConfig{
		Endpoint:         endpoint,
		UseTLS:           false,
		MaxMessageSize:   1 << 20, // 1MB
		KeepaliveTime:    30 * time.Second,
		KeepaliveTimeout: 10 * time.Second,
		DeliverTimeout:   15 * time.Second,
	}
}

// Validate checks the configuration.
func (c UplinkConfig) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("uplink: endpoint required")
	}
	if c.MaxMessageSize <= 0 {
		return fmt.Errorf("uplink: max message size must be positive")
	}
	return nil
}

// deliverRequest is the wire form of one delivery. Hand-tagged rather than
// generated; the relay's schema is a stable two-field message.
type deliverRequest struct {
	Dest    []byte `protobuf:"bytes,1,opt,name=dest"`
	Payload []byte `protobuf:"bytes,2,opt,name=payload"`
}

func (x *deliverRequest) Reset()         { *x = deliverRequest{} }
func (x *deliverRequest) String() string { return fmt.Sprintf("%+v", *x) }
func (x *deliverRequest) ProtoMessage()  {}

type deliverResponse struct {
	MessageId []byte `protobuf:"bytes,1,opt,name=message_id"`
}

func (x *deliverResponse) Reset()         { *x = deliverResponse{} }
func (x *deliverResponse) String() string { return fmt.Sprintf("%+v", *x) }
func (x *deliverResponse) ProtoMessage()  {}

const deliverMethod = "/conduit.Uplink/Deliver"

// Uplink delivers messages to a relay over gRPC. It implements
// executor.MessageSender.
type Uplink struct {
	config UplinkConfig
	conn   *grpc.ClientConn
	closed atomic.Bool
}

// DialUplink connects to the relay endpoint.
func DialUplink(config UplinkConfig) (*Uplink, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	kacp := keepalive.ClientParameters{
		Time:                config.KeepaliveTime,
		Timeout:             config.KeepaliveTimeout,
		PermitWithoutStream: true,
	}
	opts := []grpc.DialOption{
		grpc.WithKeepaliveParams(kacp),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(config.MaxMessageSize),
			grpc.MaxCallSendMsgSize(config.MaxMessageSize),
		),
	}
	if config.UseTLS {
		opts = append(opts, grpc.WithTransportCredentials(
			credentials.NewTLS(&tls.Config{
				MinVersion: tls.VersionTLS12,
			}),
		))
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	//nolint:staticcheck // Using Dial for compatibility with older gRPC versions
	conn, err := grpc.Dial(config.Endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial uplink: %w", err)
	}
	return &Uplink{config: config, conn: conn}, nil
}

// Close tears down the connection.
func (u *Uplink) Close() error {
	if u.closed.Swap(true) {
		return ErrClosed
	}
	return u.conn.Close()
}

// Validate implements executor.MessageSender.
func (u *Uplink) Validate(dest xcm.Location, msg xcm.Message) (executor.DeliveryTicket, xcm.Assets, error) {
	if u.closed.Load() {
		return nil, nil, ErrClosed
	}
	encoded, err := xcm.EncodeMessage(msg)
	if err != nil {
		return nil, nil, err
	}
	if len(encoded) > u.config.MaxMessageSize {
		return nil, nil, ErrMessageTooLarge
	}
	return &uplinkTicket{u: u, dest: dest.Clone(), encoded: encoded}, u.config.Fees.Price(encoded), nil
}

type uplinkTicket struct {
	u       *Uplink
	dest    xcm.Location
	encoded []byte
}

func (t *uplinkTicket) Deliver() ([32]byte, error) {
	if t.u.closed.Load() {
		return [32]byte{}, ErrClosed
	}
	ctx := context.Background()
	if t.u.config.DeliverTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.u.config.DeliverTimeout)
		defer cancel()
	}

	req := &deliverRequest{
		Dest:    xcm.EncodeLocation(t.dest),
		Payload: t.encoded,
	}
	resp := &deliverResponse{}
	if err := t.u.conn.Invoke(ctx, deliverMethod, req, resp); err != nil {
		return [32]byte{}, fmt.Errorf("deliver: %w", err)
	}

	id := MessageID(t.dest, t.encoded)
	if len(resp.MessageId) == 32 {
		copy(id[:], resp.MessageId)
	}
	return id, nil
}

var _ executor.MessageSender = (*Uplink)(nil)

// package tcp talks to the build coordinator over its binary TCP protocol
package tcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"gitlab.com/fbworkers.net/internal/core/ports/primary"
	"gitlab.com/fbworkers.net/internal/domain"
	"gitlab.com/fbworkers.net/internal/static/errs"
	"gitlab.com/fbworkers.net/internal/tcp/codec"
	"gitlab.com/fbworkers.net/internal/tcp/defs"
)

// CoordinatorClient queries a coordinator for its current worker list.
// Each query opens its own connection.
type CoordinatorClient struct {
	port            int
	protocolVersion uint32
	platform        byte
	dialTimeout     time.Duration
	readTimeout     time.Duration
	localHost       string
	logger          primary.Logger
}

// CoordinatorClientOption configures a CoordinatorClient
type CoordinatorClientOption func(*CoordinatorClient)

// WithPort overrides the coordinator port
func WithPort(port int) CoordinatorClientOption {
	return func(c *CoordinatorClient) {
		c.port = port
	}
}

// WithProtocolVersion sets the protocol version sent in requests and used to
// select the response record layout
func WithProtocolVersion(version uint32) CoordinatorClientOption {
	return func(c *CoordinatorClient) {
		c.protocolVersion = version
	}
}

// WithTimeouts bounds the connect and the request/response exchange
func WithTimeouts(dial, read time.Duration) CoordinatorClientOption {
	return func(c *CoordinatorClient) {
		if dial > 0 {
			c.dialTimeout = dial
		}
		if read > 0 {
			c.readTimeout = read
		}
	}
}

// WithLocalHost sets the host name used to flag the local worker
func WithLocalHost(host string) CoordinatorClientOption {
	return func(c *CoordinatorClient) {
		c.localHost = host
	}
}

// NewCoordinatorClient creates a new coordinator client
func NewCoordinatorClient(logger primary.Logger, options ...CoordinatorClientOption) *CoordinatorClient {
	client := &CoordinatorClient{
		port:            defs.CoordinatorPort,
		protocolVersion: defs.ProtocolVersion,
		platform:        defs.PlatformWindows,
		dialTimeout:     defs.DefaultDialTimeout,
		readTimeout:     defs.DefaultReadTimeout,
		logger:          logger,
	}

	for _, option := range options {
		option(client)
	}

	return client
}

// FetchWorkers sends MsgRequestWorkerList to the coordinator at address and
// decodes the reply. address is a host name, optionally with a port.
func (c *CoordinatorClient) FetchWorkers(ctx context.Context, address string) ([]*domain.WorkerRecord, error) {
	layout, err := codec.LayoutFor(c.protocolVersion)
	if err != nil {
		return nil, err
	}

	target := c.target(address)
	dialer := net.Dialer{Timeout: c.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to coordinator %s: %w", target, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.readTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("failed to set coordinator deadline: %w", err)
	}

	request := codec.EncodeWorkerListRequest(c.protocolVersion, c.platform)
	if _, err := conn.Write(request); err != nil {
		return nil, fmt.Errorf("failed to write worker list request: %w", timeoutErr(err))
	}

	msg, err := readMessage(conn)
	if err != nil {
		return nil, err
	}

	list, err := codec.NewDecoder(layout, c.localHost).Decode(msg)
	if err != nil {
		return nil, err
	}
	if list.Truncated {
		c.logger.Warn("Worker list truncated", "coordinator", target, "decoded", len(list.Records))
	}

	return list.Records, nil
}

func (c *CoordinatorClient) target(address string) string {
	if _, _, err := net.SplitHostPort(address); err == nil {
		return address
	}
	return net.JoinHostPort(address, strconv.Itoa(c.port))
}

// readMessage reads a MsgWorkerList header and its payload. A payload cut
// short by the peer is returned as is; the decoder copes with partial records.
func readMessage(conn net.Conn) ([]byte, error) {
	header := make([]byte, defs.WorkerListHeaderSize)
	if _, err := io.ReadFull(conn, header); err != nil {
		return nil, fmt.Errorf("failed to read worker list header: %w", timeoutErr(err))
	}

	h, err := codec.ParseWorkerListHeader(header)
	if err != nil {
		return nil, err
	}
	if h.PayloadSize > defs.MaxWorkerListPayload {
		return nil, fmt.Errorf("%w: %d bytes", errs.ErrResponseTooLarge, h.PayloadSize)
	}

	msg := make([]byte, defs.WorkerListHeaderSize+int(h.PayloadSize))
	copy(msg, header)
	n, err := io.ReadFull(conn, msg[defs.WorkerListHeaderSize:])
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read worker list payload: %w", timeoutErr(err))
	}

	return msg[:defs.WorkerListHeaderSize+n], nil
}

func timeoutErr(err error) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", errs.ErrCoordinatorTimeout, err)
	}
	return err
}

// Package session manages the connection to the vector database.
//
// A Manager holds at most one open connection. Operations acquire it at their
// start and release it when they finish, whatever the outcome, so no connection
// outlives the operation that opened it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	qdrantclient "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"golang.org/x/sync/semaphore"

	"github.com/andrew/vecdash/pkg/logging"
)

// ErrConnection is returned when the endpoint cannot be reached or the session was lost
var ErrConnection = errors.New("connection error")

// DefaultDialTimeout bounds how long opening a session may take
const DefaultDialTimeout = 5 * time.Second

// Conn is a live session against the vector database
type Conn interface {
	Collections() qdrantclient.CollectionsClient
	Points() qdrantclient.PointsClient
	// Alive reports whether the underlying connection is still usable
	Alive() bool
	Close() error
}

// Dialer opens a new session to addr
type Dialer func(ctx context.Context, addr string) (Conn, error)

// grpcConn is a Conn over a Qdrant gRPC connection
type grpcConn struct {
	cc          *grpc.ClientConn
	collections qdrantclient.CollectionsClient
	points      qdrantclient.PointsClient
}

func (c *grpcConn) Collections() qdrantclient.CollectionsClient { return c.collections }
func (c *grpcConn) Points() qdrantclient.PointsClient           { return c.points }

func (c *grpcConn) Alive() bool {
	state := c.cc.GetState()
	return state != connectivity.Shutdown && state != connectivity.TransientFailure
}

func (c *grpcConn) Close() error {
	return c.cc.Close()
}

// DialQdrant connects to Qdrant's gRPC port at addr and checks the server answers
func DialQdrant(ctx context.Context, addr string) (Conn, error) {
	cc, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", addr, err)
	}

	if _, err := qdrantclient.NewQdrantClient(cc).HealthCheck(ctx, &qdrantclient.HealthCheckRequest{}); err != nil {
		cc.Close()
		return nil, fmt.Errorf("health check against %s failed: %w", addr, err)
	}

	return &grpcConn{
		cc:          cc,
		collections: qdrantclient.NewCollectionsClient(cc),
		points:      qdrantclient.NewPointsClient(cc),
	}, nil
}

// Manager owns the single session handle for one endpoint
type Manager struct {
	// sem serializes operations; mu guards conn
	sem         *semaphore.Weighted
	mu          sync.Mutex
	addr        string
	dial        Dialer
	dialTimeout time.Duration
	logger      *slog.Logger
	conn        Conn
}

// Option configures a Manager
type Option func(*Manager)

// WithDialer replaces the Qdrant dialer, mostly for tests
func WithDialer(d Dialer) Option {
	return func(m *Manager) { m.dial = d }
}

// WithLogger sets the logger used for connection events
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithDialTimeout bounds each connection attempt
func WithDialTimeout(d time.Duration) Option {
	return func(m *Manager) { m.dialTimeout = d }
}

// NewManager creates a Manager for addr. No connection is made until the first Acquire.
func NewManager(addr string, opts ...Option) *Manager {
	m := &Manager{
		sem:         semaphore.NewWeighted(1),
		addr:        addr,
		dial:        DialQdrant,
		dialTimeout: DefaultDialTimeout,
		logger:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Addr returns the endpoint this manager connects to
func (m *Manager) Addr() string {
	return m.addr
}

// Open reports whether a session is currently held
func (m *Manager) Open() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn != nil
}

// Acquire returns the open session, opening a new one if there is none or the last one dropped.
// It waits for any operation running under Do, giving up when ctx is done.
func (m *Manager) Acquire(ctx context.Context) (Conn, error) {
	if err := m.lock(ctx); err != nil {
		return nil, err
	}
	defer m.sem.Release(1)
	return m.acquire(ctx)
}

// Release closes the session if one is open. Calling it with nothing open is a no-op.
func (m *Manager) Release() error {
	if err := m.lock(context.Background()); err != nil {
		return err
	}
	defer m.sem.Release(1)
	return m.release()
}

// Do runs fn with an acquired session and releases it afterwards on every path.
// Calls are serialized: a second Do waits until the first has released, or
// fails with ErrConnection if its ctx is done first.
func (m *Manager) Do(ctx context.Context, fn func(Conn) error) error {
	if err := m.lock(ctx); err != nil {
		return err
	}
	defer m.sem.Release(1)

	conn, err := m.acquire(ctx)
	if err != nil {
		return err
	}
	defer m.release()

	return fn(conn)
}

func (m *Manager) lock(ctx context.Context) error {
	if err := m.sem.Acquire(ctx, 1); err != nil {
		m.logger.Warn("gave up waiting for session", "addr", m.addr, "error", err)
		return fmt.Errorf("%w: %s: waiting for session: %w", ErrConnection, m.addr, err)
	}
	return nil
}

func (m *Manager) acquire(ctx context.Context) (Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn != nil {
		if m.conn.Alive() {
			return m.conn, nil
		}
		m.logger.Warn("session dropped, reconnecting", "addr", m.addr)
		m.conn.Close()
		m.conn = nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, m.dialTimeout)
	defer cancel()

	conn, err := m.dial(dialCtx, m.addr)
	if err != nil {
		m.logger.Error("failed to connect", "addr", m.addr, "error", err)
		return nil, fmt.Errorf("%w: %s: %w", ErrConnection, m.addr, err)
	}

	m.logger.Info("connected", "addr", m.addr)
	m.conn = conn
	return conn, nil
}

func (m *Manager) release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil {
		return nil
	}
	conn := m.conn
	m.conn = nil

	if err := conn.Close(); err != nil {
		m.logger.Warn("error closing session", "addr", m.addr, "error", err)
		return err
	}
	m.logger.Info("session closed", "addr", m.addr)
	return nil
}

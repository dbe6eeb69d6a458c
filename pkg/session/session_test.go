package session

import (
	"context"
	"errors"
	"testing"
	"time"

	qdrantclient "github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	alive  bool
	closed int
}

func (c *fakeConn) Collections() qdrantclient.CollectionsClient { return nil }
func (c *fakeConn) Points() qdrantclient.PointsClient           { return nil }
func (c *fakeConn) Alive() bool                                 { return c.alive }
func (c *fakeConn) Close() error {
	c.closed++
	c.alive = false
	return nil
}

type fakeDialer struct {
	conns []*fakeConn
	err   error
}

func (d *fakeDialer) dial(ctx context.Context, addr string) (Conn, error) {
	if d.err != nil {
		return nil, d.err
	}
	c := &fakeConn{alive: true}
	d.conns = append(d.conns, c)
	return c, nil
}

func TestManager_LazyOpen(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager("localhost:6334", WithDialer(d.dial))

	assert.False(t, m.Open())
	assert.Empty(t, d.conns)
	assert.Equal(t, "localhost:6334", m.Addr())
}

func TestManager_AcquireReusesOpenSession(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager("localhost:6334", WithDialer(d.dial))

	c1, err := m.Acquire(context.Background())
	require.NoError(t, err)
	c2, err := m.Acquire(context.Background())
	require.NoError(t, err)

	assert.Same(t, c1, c2)
	assert.Len(t, d.conns, 1)
	assert.True(t, m.Open())
}

func TestManager_AcquireReopensDroppedSession(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager("localhost:6334", WithDialer(d.dial))

	_, err := m.Acquire(context.Background())
	require.NoError(t, err)
	d.conns[0].alive = false

	c2, err := m.Acquire(context.Background())
	require.NoError(t, err)

	assert.Len(t, d.conns, 2)
	assert.Same(t, d.conns[1], c2)
	assert.Equal(t, 1, d.conns[0].closed)
}

func TestManager_AcquireUnreachable(t *testing.T) {
	d := &fakeDialer{err: errors.New("connection refused")}
	m := NewManager("localhost:1", WithDialer(d.dial))

	_, err := m.Acquire(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
	assert.Contains(t, err.Error(), "connection refused")
	assert.False(t, m.Open())
}

func TestManager_ReleaseIdempotent(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager("localhost:6334", WithDialer(d.dial))

	assert.NoError(t, m.Release())

	_, err := m.Acquire(context.Background())
	require.NoError(t, err)

	assert.NoError(t, m.Release())
	assert.NoError(t, m.Release())
	assert.Equal(t, 1, d.conns[0].closed)
	assert.False(t, m.Open())
}

func TestManager_DoReleasesOnSuccessAndFailure(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager("localhost:6334", WithDialer(d.dial))

	err := m.Do(context.Background(), func(c Conn) error {
		assert.True(t, m.conn != nil)
		return nil
	})
	require.NoError(t, err)
	assert.False(t, m.Open())

	boom := errors.New("boom")
	err = m.Do(context.Background(), func(c Conn) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, m.Open())

	require.Len(t, d.conns, 2)
	assert.Equal(t, 1, d.conns[0].closed)
	assert.Equal(t, 1, d.conns[1].closed)
}

func TestManager_DoConnectionFailureSkipsFn(t *testing.T) {
	d := &fakeDialer{err: errors.New("no route to host")}
	m := NewManager("localhost:6334", WithDialer(d.dial))

	called := false
	err := m.Do(context.Background(), func(c Conn) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, ErrConnection)
	assert.False(t, called)
}

func TestManager_DoGivesUpWhenContextEndsWhileWaiting(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager("localhost:6334", WithDialer(d.dial))

	started := make(chan struct{})
	finish := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- m.Do(context.Background(), func(c Conn) error {
			close(started)
			<-finish
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	called := false
	start := time.Now()
	err := m.Do(ctx, func(c Conn) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, ErrConnection)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, called)
	assert.Less(t, time.Since(start), time.Second)

	close(finish)
	require.NoError(t, <-done)
	assert.False(t, m.Open())
}

package broker

import (
	"errors"
	"io"
	"log"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestSocketQueueHandsOutConnectionsInOrder(t *testing.T) {
	q, err := NewSocketQueue("127.0.0.1:0", discardLogger())
	require.NoError(t, err)
	defer q.Close()

	first, err := net.Dial("tcp", q.Addr().String())
	require.NoError(t, err)
	defer first.Close()

	second, err := net.Dial("tcp", q.Addr().String())
	require.NoError(t, err)
	defer second.Close()

	got1, err := q.Next()
	require.NoError(t, err)
	defer got1.Close()
	require.Equal(t, first.LocalAddr().String(), got1.RemoteAddr().String())

	got2, err := q.Next()
	require.NoError(t, err)
	defer got2.Close()
	require.Equal(t, second.LocalAddr().String(), got2.RemoteAddr().String())
}

func TestSocketQueueNextFailsAfterClose(t *testing.T) {
	q, err := NewSocketQueue("127.0.0.1:0", discardLogger())
	require.NoError(t, err)

	require.NoError(t, q.Close())

	_, err = q.Next()
	require.True(t, errors.Is(err, ErrQueueClosed))
}

func TestSocketQueueCloseReleasesBlockedNext(t *testing.T) {
	q, err := NewSocketQueue("127.0.0.1:0", discardLogger())
	require.NoError(t, err)

	result := make(chan error, 1)
	go func() {
		_, err := q.Next()
		result <- err
	}()

	require.NoError(t, q.Close())

	select {
	case err := <-result:
		require.True(t, errors.Is(err, ErrQueueClosed))
	case <-time.After(time.Second):
		t.Fatal("Next did not return after Close")
	}
}

func TestSocketQueueCloseClosesQueuedSockets(t *testing.T) {
	q, err := NewSocketQueue("127.0.0.1:0", discardLogger())
	require.NoError(t, err)

	conn, err := net.Dial("tcp", q.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	// Give the accept loop a moment to enqueue the connection.
	require.Eventually(t, func() bool {
		q.mu.Lock()
		defer q.mu.Unlock()
		return len(q.pending) == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, q.Close())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, err = conn.Read(make([]byte, 1))
	require.Error(t, err)
}

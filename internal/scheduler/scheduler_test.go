package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	paired     bool
	connected  atomic.Bool
	reconnects atomic.Int32
	err        error
}

func (f *fakeConn) IsPaired() bool    { return f.paired }
func (f *fakeConn) IsConnected() bool { return f.connected.Load() }
func (f *fakeConn) Reconnect() error {
	f.reconnects.Add(1)
	if f.err != nil {
		return f.err
	}
	f.connected.Store(true)
	return nil
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Interval: time.Second})
	assert.ErrorContains(t, err, "connection is required")

	_, err = New(Config{Connection: &fakeConn{}})
	assert.ErrorContains(t, err, "interval must be positive")
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name       string
		paired     bool
		connected  bool
		err        error
		reconnects int32
	}{
		{"unpaired is ignored", false, false, nil, 0},
		{"connected is ignored", true, true, nil, 0},
		{"dropped reconnects", true, false, nil, 1},
		{"reconnect error is logged", true, false, errors.New("dial failed"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &fakeConn{paired: tt.paired, err: tt.err}
			conn.connected.Store(tt.connected)

			s, err := New(Config{Connection: conn, Interval: time.Hour})
			require.NoError(t, err)
			s.Check()

			assert.Equal(t, tt.reconnects, conn.reconnects.Load())
		})
	}
}

func TestScheduler_RunsWatchdog(t *testing.T) {
	conn := &fakeConn{paired: true}

	s, err := New(Config{Connection: conn, Interval: 20 * time.Millisecond})
	require.NoError(t, err)
	s.Start(t.Context())
	defer func() { _ = s.Stop() }()

	assert.Eventually(t, func() bool { return conn.reconnects.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

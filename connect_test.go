// SPDX-License-Identifier: GPL-3.0-or-later

package vbc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewConnector populates all fields from Config and the provided logger.
func TestNewConnector(t *testing.T) {
	cfg := NewConfig()
	logger := DefaultSLogger()

	op := NewConnector(cfg, "tcp", logger)

	require.NotNil(t, op)
	assert.Equal(t, "tcp", op.Network)
	assert.NotNil(t, op.Dialer)
	assert.NotNil(t, op.Logger)
	assert.NotNil(t, op.TimeNow)
	assert.NotNil(t, op.ErrClassifier)
}

// Dial connects to the address and returns a net.Conn or an error.
func TestConnectorDial(t *testing.T) {
	tests := []struct {
		name    string
		dialer  *fakeDialer
		address string
		wantErr bool
	}{
		{
			name: "successful connect",
			dialer: &fakeDialer{
				DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
					return &fakeConn{
						LocalAddrVal:  &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 54321},
						RemoteAddrVal: &net.TCPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 11210},
					}, nil
				},
			},
			address: "10.0.0.1:11210",
			wantErr: false,
		},
		{
			name: "dial error",
			dialer: &fakeDialer{
				DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
					return nil, errors.New("connection refused")
				},
			},
			address: "10.0.0.1:11210",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			cfg.Dialer = tt.dialer

			op := NewConnector(cfg, "tcp", DefaultSLogger())
			conn, err := op.Dial(context.Background(), tt.address)

			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, conn)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, conn)
		})
	}
}

// Dial transparently passes the caller's context to the dialer.
func TestConnectorDialContextTransparency(t *testing.T) {
	cfg := NewConfig()
	cfg.Dialer = &fakeDialer{
		DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
			time.Sleep(10 * time.Millisecond)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, errors.New("should not reach here")
		},
	}

	op := NewConnector(cfg, "tcp", DefaultSLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Nanosecond)
	defer cancel()

	_, err := op.Dial(ctx, "10.0.0.1:11210")
	require.Error(t, err)
}

// Dial emits connectStart/connectDone log events.
func TestConnectorDialLogging(t *testing.T) {
	logger, records := newCapturingLogger()

	cfg := NewConfig()
	cfg.Dialer = &fakeDialer{
		DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
			return &fakeConn{}, nil
		},
	}

	op := NewConnector(cfg, "tcp", logger)
	conn, err := op.Dial(context.Background(), "10.0.0.1:11210")
	require.NoError(t, err)
	conn.Close()

	require.Len(t, *records, 2)
	assert.Equal(t, "connectStart", (*records)[0].Message)
	assert.Equal(t, "connectDone", (*records)[1].Message)
}

// Dial returns the classified dial error without a conn.
func TestConnectorDialErrorClassified(t *testing.T) {
	logger, records := newCapturingLogger()

	cfg := NewConfig()
	cfg.Dialer = &fakeDialer{
		DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
			return nil, errors.New("boom")
		},
	}

	op := NewConnector(cfg, "tcp", logger)
	conn, err := op.Dial(context.Background(), "10.0.0.1:11210")
	require.Error(t, err)
	assert.Nil(t, conn)
	require.Len(t, *records, 2)
}

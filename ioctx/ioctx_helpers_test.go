// SPDX-License-Identifier: GPL-3.0-or-later

package ioctx

import (
	"net"
	"testing"

	"github.com/shardkv/vbc"
	"github.com/stretchr/testify/require"
)

func newLoopbackPair(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	acceptCh := make(chan net.Conn, 1)
	go func() {
		c, _ := ln.Accept()
		acceptCh <- c
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)

	server := <-acceptCh
	require.NotNil(t, server)

	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return client, server
}

func testConfig() *vbc.Config {
	return vbc.NewConfig()
}

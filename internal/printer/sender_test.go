package printer

import (
	"context"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/nimasrn/live-commerce/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSender_Send(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		b, _ := io.ReadAll(conn)
		received <- b
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	s := NewSender(time.Second)
	payload := Encode(sampleBill(), DefaultOptions())
	err = s.Send(context.Background(), model.PrinterSettings{Name: "test", IP: "127.0.0.1", Port: port}, payload)
	require.NoError(t, err)

	select {
	case got := <-received:
		assert.Equal(t, payload, got)
	case <-time.After(2 * time.Second):
		t.Fatal("printer received nothing")
	}
}

func TestSender_UnreachableNamesAddress(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	s := NewSender(500 * time.Millisecond)
	err = s.Send(context.Background(), model.PrinterSettings{IP: "127.0.0.1", Port: port}, []byte{0x1b, '@'})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPrinterUnreachable)
	assert.Contains(t, err.Error(), "127.0.0.1:"+strconv.Itoa(port))
}

func TestSender_NotConfigured(t *testing.T) {
	s := NewSender(time.Second)
	err := s.Send(context.Background(), model.PrinterSettings{}, []byte("x"))
	assert.ErrorIs(t, err, model.ErrPrinterNotConfigured)
}

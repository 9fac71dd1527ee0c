package printer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/nimasrn/live-commerce/internal/model"
	"github.com/nimasrn/live-commerce/pkg/logger"
)

var ErrPrinterUnreachable = errors.New("printer unreachable")

type Sender struct {
	timeout time.Duration
	dial    func(ctx context.Context, network, addr string) (net.Conn, error)
}

func NewSender(timeout time.Duration) *Sender {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	d := &net.Dialer{Timeout: timeout}
	return &Sender{timeout: timeout, dial: d.DialContext}
}

// Send opens a raw socket to the printer, writes payload and closes. Errors name the
// configured ip and port.
func (s *Sender) Send(ctx context.Context, p model.PrinterSettings, payload []byte) error {
	addr, err := p.Addr()
	if err != nil {
		return err
	}

	conn, err := s.dial(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: cannot connect to %s:%d: %v", ErrPrinterUnreachable, p.IP, p.Port, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(s.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetWriteDeadline(deadline)

	n, err := conn.Write(payload)
	if err != nil {
		return fmt.Errorf("%w: write to %s:%d failed after %d bytes: %v", ErrPrinterUnreachable, p.IP, p.Port, n, err)
	}

	logger.Info("bill sent to printer", "printer", p.Name, "addr", addr, "bytes", n)
	return nil
}

package services

import (
	"context"
	"fmt"

	"github.com/nimasrn/live-commerce/internal/model"
	"github.com/nimasrn/live-commerce/internal/printer"
	"github.com/nimasrn/live-commerce/pkg/logger"
	"github.com/nimasrn/live-commerce/pkg/prom"
)

type PrinterSource interface {
	Printer(ctx context.Context) (model.PrinterSettings, error)
}

type BillSender interface {
	Send(ctx context.Context, p model.PrinterSettings, payload []byte) error
}

type PrintService struct {
	settings PrinterSource
	sender   BillSender
	options  printer.Options
}

func NewPrintService(settings PrinterSource, sender BillSender, opts printer.Options) *PrintService {
	return &PrintService{
		settings: settings,
		sender:   sender,
		options:  opts,
	}
}

// Print renders the bill for the active printer and sends it. Errors from the socket name
// the configured address.
func (s *PrintService) Print(ctx context.Context, bill model.Bill) error {
	p, err := s.settings.Printer(ctx)
	if err != nil {
		prom.IncBills("error")
		return fmt.Errorf("resolve printer: %w", err)
	}

	opts := s.options
	if p.Codepage > 0 && p.Codepage <= 255 {
		opts.Codepage = byte(p.Codepage)
	}
	payload := printer.Encode(bill, opts)

	if err := s.sender.Send(ctx, p, payload); err != nil {
		prom.IncBills("error")
		logger.Error("failed to print bill", "order_code", bill.OrderCode, "printer", p.Name, "error", err)
		return err
	}

	prom.IncBills("ok")
	logger.Info("bill printed", "order_code", bill.OrderCode, "printer", p.Name, "bytes", len(payload))
	return nil
}

package workflow

import (
	"context"
	"fmt"
)

const invoiceNumberWidth = 4

// FormatInvoiceNumber zero-pads counter to four digits; larger counters print in full.
func FormatInvoiceNumber(prefix string, counter int64) string {
	return fmt.Sprintf("%s%0*d", prefix, invoiceNumberWidth, counter)
}

// invoiceSequence is the tenant counter as read under the numbering lock.
type invoiceSequence struct {
	tenantId string
	stored   int64
	counter  int64
	number   string
}

// readInvoiceSequence reads the counter. The caller holds invoiceNumberLockKey.
func (e *Engine) readInvoiceSequence(ctx context.Context, tenantId string) (*invoiceSequence, error) {
	tenant, err := e.store.GetTenant(ctx, tenantId)
	if err != nil {
		return nil, storeErr("tenant", err)
	}
	counter := tenant.InvoiceNextNumber
	if counter < 1 {
		counter = 1
	}
	return &invoiceSequence{
		tenantId: tenantId,
		stored:   tenant.InvoiceNextNumber,
		counter:  counter,
		number:   FormatInvoiceNumber(tenant.InvoicePrefix, counter),
	}, nil
}

// advance writes counter+1 back, conditional on nobody having moved it.
func (e *Engine) advanceInvoiceSequence(ctx context.Context, seq *invoiceSequence) error {
	err := e.store.AdvanceInvoiceCounter(ctx, seq.tenantId, seq.stored, seq.counter+1)
	if err != nil {
		return storeErr("invoice number sequence", err)
	}
	return nil
}

// PeekNextInvoiceNumber returns the number the next invoice would receive.
func (e *Engine) PeekNextInvoiceNumber(ctx context.Context) (number string, err error) {
	ctx, span, tenantId, err := e.begin(ctx, "PeekNextInvoiceNumber")
	if err != nil {
		return "", err
	}
	defer func() { endSpan(span, err) }()

	seq, err := e.readInvoiceSequence(ctx, tenantId)
	if err != nil {
		return "", err
	}
	return seq.number, nil
}

package workflow

import (
	"sync"
	"testing"

	"github.com/mmdatafocus/billing_backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatInvoiceNumber(t *testing.T) {
	assert.Equal(t, "INV-0001", FormatInvoiceNumber("INV-", 1))
	assert.Equal(t, "INV-0042", FormatInvoiceNumber("INV-", 42))
	assert.Equal(t, "INV-10000", FormatInvoiceNumber("INV-", 10000))
	assert.Equal(t, "0007", FormatInvoiceNumber("", 7))
}

func TestInvoiceNumbersAreSequential(t *testing.T) {
	f := newFixture(t)

	next, err := f.engine.PeekNextInvoiceNumber(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, "INV-0001", next)

	first := f.invoiceOf(t, f.pen, "1")
	second := f.invoiceOf(t, f.pen, "1")
	assert.Equal(t, "INV-0001", first.InvoiceNumber)
	assert.Equal(t, "INV-0002", second.InvoiceNumber)

	next, err = f.engine.PeekNextInvoiceNumber(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, "INV-0003", next)
}

func TestPeekDoesNotConsumeNumber(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		_, err := f.engine.PeekNextInvoiceNumber(f.ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, "INV-0001", f.invoiceOf(t, f.pen, "1").InvoiceNumber)
}

func TestInvoiceNumberBeyondPadding(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.memory.AdvanceInvoiceCounter(f.ctx, f.tenant.ID, 1, 10000))

	assert.Equal(t, "INV-10000", f.invoiceOf(t, f.pen, "1").InvoiceNumber)
	assert.Equal(t, "INV-10001", f.invoiceOf(t, f.pen, "1").InvoiceNumber)
}

func TestConcurrentInvoicesGetUniqueNumbers(t *testing.T) {
	f := newFixture(t)
	const n = 12

	var wg sync.WaitGroup
	numbers := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			invoice, err := f.engine.CreateSalesInvoice(f.ctx, &models.NewSalesInvoice{
				CustomerId:  f.customer.ID,
				InvoiceDate: "2024-05-02",
				Items:       []models.NewSalesInvoiceItem{{ProductId: intPtr(f.pen.ID), Quantity: dec("1")}},
			})
			if assert.NoError(t, err) {
				numbers <- invoice.InvoiceNumber
			}
		}()
	}
	wg.Wait()
	close(numbers)

	seen := map[string]bool{}
	for number := range numbers {
		assert.False(t, seen[number], "duplicate %s", number)
		seen[number] = true
	}
	assert.Len(t, seen, n)

	tenant, err := f.memory.GetTenant(f.ctx, f.tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(n+1), tenant.InvoiceNextNumber)
}

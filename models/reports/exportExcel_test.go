package reports

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportExcelTopProducts(t *testing.T) {
	f := newReportFixture(t)
	rows, err := f.reporter.TopProducts(f.ctx, nil, 0)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, ExportExcel(&buf, "Top products", TopProducts(rows)))

	book, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer book.Close()

	assert.Equal(t, []string{"Top products"}, book.GetSheetList())
	cells, err := book.GetRows("Top products")
	require.NoError(t, err)
	require.Len(t, cells, 4)
	assert.Equal(t, []string{"Product", "Quantity", "Revenue", "Lines"}, cells[0])
	assert.Equal(t, []string{"Pen", "3", "300", "2"}, cells[1])
}

func TestExportExcelProfitAndLoss(t *testing.T) {
	f := newReportFixture(t)
	pl, err := f.reporter.ProfitAndLoss(f.ctx, f.may)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, ExportExcel(&buf, "", pl))

	book, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer book.Close()

	cells, err := book.GetRows("Report")
	require.NoError(t, err)
	require.Len(t, cells, 7)
	assert.Equal(t, []string{"Gross profit", "160"}, cells[4])
}

package reports

import (
	"io"

	"github.com/mmdatafocus/billing_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const ExcelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExcelExporter is a report that can be laid out as one header row plus data rows.
type ExcelExporter interface {
	ExcelHeaders() []string
	ExcelRows() [][]interface{}
}

// ExportExcel writes the report as a single-sheet workbook.
func ExportExcel(w io.Writer, sheet string, report ExcelExporter) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet == "" {
		sheet = "Report"
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	if err := setRow(f, sheet, 1, toCells(report.ExcelHeaders())); err != nil {
		return err
	}
	for i, row := range report.ExcelRows() {
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	_, err := f.WriteTo(w)
	return err
}

func setRow(f *excelize.File, sheet string, rowNo int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNo)
	if err != nil {
		return err
	}
	for i, v := range values {
		if d, ok := v.(decimal.Decimal); ok {
			values[i] = d.InexactFloat64()
		}
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func toCells(headers []string) []interface{} {
	cells := make([]interface{}, len(headers))
	for i, h := range headers {
		cells[i] = h
	}
	return cells
}

func (resp *SalesSummaryResponse) ExcelHeaders() []string {
	return []string{"From", "To", "Invoices", "Revenue"}
}

func (resp *SalesSummaryResponse) ExcelRows() [][]interface{} {
	return [][]interface{}{{
		resp.Range.From.Format(utils.DateLayout), resp.Range.To.Format(utils.DateLayout), resp.InvoiceCount, resp.TotalRevenue,
	}}
}

func (resp *InvoiceSummaryResponse) ExcelHeaders() []string {
	return []string{"Status", "Count", "Total"}
}

func (resp *InvoiceSummaryResponse) ExcelRows() [][]interface{} {
	var rows [][]interface{}
	for _, s := range resp.Statuses {
		rows = append(rows, []interface{}{string(s.Status), s.Count, s.Total})
	}
	return append(rows, []interface{}{"total", resp.Count, resp.Total})
}

func (resp *OutstandingResponse) ExcelHeaders() []string {
	return []string{"Invoice", "Date", "Customer", "Total", "Paid", "Due"}
}

func (resp *OutstandingResponse) ExcelRows() [][]interface{} {
	var rows [][]interface{}
	for _, inv := range resp.Invoices {
		rows = append(rows, []interface{}{
			inv.InvoiceNumber, inv.InvoiceDate.Format(utils.DateLayout), inv.CustomerName, inv.Total, inv.AmountPaid, inv.Due,
		})
	}
	return append(rows, []interface{}{"total", "", "", "", "", resp.TotalDue})
}

func (resp *TaxSummaryResponse) ExcelHeaders() []string {
	return []string{"Month", "CGST", "SGST", "IGST", "Total"}
}

func (resp *TaxSummaryResponse) ExcelRows() [][]interface{} {
	var rows [][]interface{}
	for _, m := range resp.Months {
		rows = append(rows, []interface{}{m.Month, m.Cgst, m.Sgst, m.Igst, m.TotalTax})
	}
	return append(rows, []interface{}{"total", resp.Cgst, resp.Sgst, resp.Igst, resp.Total})
}

type RevenueTrend []*RevenueTrendPoint

func (t RevenueTrend) ExcelHeaders() []string { return []string{"Month", "Revenue"} }

func (t RevenueTrend) ExcelRows() [][]interface{} {
	var rows [][]interface{}
	for _, p := range t {
		rows = append(rows, []interface{}{p.Month, p.Revenue})
	}
	return rows
}

type TopProducts []*TopProductResponse

func (t TopProducts) ExcelHeaders() []string {
	return []string{"Product", "Quantity", "Revenue", "Lines"}
}

func (t TopProducts) ExcelRows() [][]interface{} {
	var rows [][]interface{}
	for _, p := range t {
		rows = append(rows, []interface{}{p.Name, p.Quantity, p.Revenue, p.LineCount})
	}
	return rows
}

type TopCustomers []*TopCustomerResponse

func (t TopCustomers) ExcelHeaders() []string {
	return []string{"Customer", "Invoices", "Revenue", "Paid"}
}

func (t TopCustomers) ExcelRows() [][]interface{} {
	var rows [][]interface{}
	for _, c := range t {
		rows = append(rows, []interface{}{c.CustomerName, c.InvoiceCount, c.Revenue, c.AmountPaid})
	}
	return rows
}

type ProductProfits []*ProductProfitResponse

func (t ProductProfits) ExcelHeaders() []string {
	return []string{"Product", "Quantity", "Sales", "Cost", "Profit", "Margin %"}
}

func (t ProductProfits) ExcelRows() [][]interface{} {
	var rows [][]interface{}
	for _, p := range t {
		rows = append(rows, []interface{}{p.ProductName, p.Quantity, p.Sales, p.Cost, p.Profit, p.MarginPercent})
	}
	return rows
}

func (resp *ProfitAndLossResponse) ExcelHeaders() []string {
	return []string{"Line", "Amount"}
}

func (resp *ProfitAndLossResponse) ExcelRows() [][]interface{} {
	return [][]interface{}{
		{"Sales (net of tax)", resp.TotalSales},
		{"Tax collected", resp.TaxCollected},
		{"Sales incl. tax", resp.SalesIncludingTax},
		{"Cost of goods", resp.CostOfGoods},
		{"Gross profit", resp.GrossProfit},
		{"Profit %", resp.ProfitPercent},
		{"Purchases", resp.Purchases},
	}
}

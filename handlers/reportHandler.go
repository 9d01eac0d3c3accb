package handlers

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/billing_backend/models/reports"
	"github.com/mmdatafocus/billing_backend/utils"
)

type reportQuery struct {
	reports.RangeInput
	Limit  int
	Months int
	Format string
}

func (h *Handler) bindReportQuery(c *gin.Context) (*reportQuery, bool) {
	var q reportQuery
	if err := c.ShouldBindQuery(&q.RangeInput); err != nil {
		h.respondError(c, utils.ValidationError("invalid query: %s", err.Error()))
		return nil, false
	}
	q.Format = c.Query("format")
	// numeric options clamp rather than reject
	q.Limit, _ = strconv.Atoi(c.Query("limit"))
	q.Months, _ = strconv.Atoi(c.Query("months"))
	return &q, true
}

func (h *Handler) rangeOf(c *gin.Context, q *reportQuery) (reports.DateRange, bool) {
	dr, err := reports.ResolveDateRange(q.RangeInput, h.reporter.Now())
	if err != nil {
		h.respondError(c, err)
		return reports.DateRange{}, false
	}
	return dr, true
}

func (h *Handler) optionalRangeOf(c *gin.Context, q *reportQuery) (*reports.DateRange, bool) {
	dr, err := reports.ResolveOptionalRange(q.RangeInput, h.reporter.Now())
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	return dr, true
}

// writeReport renders JSON, or an xlsx workbook when format=xlsx.
func (h *Handler) writeReport(c *gin.Context, q *reportQuery, name string, data any, sheet reports.ExcelExporter) {
	if q.Format != "xlsx" {
		c.JSON(http.StatusOK, data)
		return
	}
	var buf bytes.Buffer
	if err := reports.ExportExcel(&buf, name, sheet); err != nil {
		h.respondError(c, utils.StoreError("could not build workbook", err))
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+name+".xlsx")
	c.Data(http.StatusOK, reports.ExcelContentType, buf.Bytes())
}

func (h *Handler) salesSummary(c *gin.Context) {
	q, ok := h.bindReportQuery(c)
	if !ok {
		return
	}
	dr, ok := h.rangeOf(c, q)
	if !ok {
		return
	}
	resp, err := h.reporter.SalesSummary(c.Request.Context(), dr)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.writeReport(c, q, "sales-summary", resp, resp)
}

func (h *Handler) invoiceSummary(c *gin.Context) {
	q, ok := h.bindReportQuery(c)
	if !ok {
		return
	}
	dr, ok := h.optionalRangeOf(c, q)
	if !ok {
		return
	}
	resp, err := h.reporter.InvoiceSummary(c.Request.Context(), dr)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.writeReport(c, q, "invoice-summary", resp, resp)
}

func (h *Handler) outstanding(c *gin.Context) {
	q, ok := h.bindReportQuery(c)
	if !ok {
		return
	}
	resp, err := h.reporter.Outstanding(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.writeReport(c, q, "outstanding", resp, resp)
}

func (h *Handler) taxSummary(c *gin.Context) {
	q, ok := h.bindReportQuery(c)
	if !ok {
		return
	}
	dr, ok := h.rangeOf(c, q)
	if !ok {
		return
	}
	resp, err := h.reporter.TaxSummary(c.Request.Context(), dr)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.writeReport(c, q, "tax-summary", resp, resp)
}

func (h *Handler) revenueTrend(c *gin.Context) {
	q, ok := h.bindReportQuery(c)
	if !ok {
		return
	}
	points, err := h.reporter.RevenueTrend(c.Request.Context(), q.Months)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.writeReport(c, q, "revenue-trend", points, reports.RevenueTrend(points))
}

func (h *Handler) topProducts(c *gin.Context) {
	q, ok := h.bindReportQuery(c)
	if !ok {
		return
	}
	dr, ok := h.optionalRangeOf(c, q)
	if !ok {
		return
	}
	rows, err := h.reporter.TopProducts(c.Request.Context(), dr, q.Limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.writeReport(c, q, "top-products", rows, reports.TopProducts(rows))
}

func (h *Handler) topCustomers(c *gin.Context) {
	q, ok := h.bindReportQuery(c)
	if !ok {
		return
	}
	dr, ok := h.optionalRangeOf(c, q)
	if !ok {
		return
	}
	rows, err := h.reporter.TopCustomers(c.Request.Context(), dr, q.Limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.writeReport(c, q, "top-customers", rows, reports.TopCustomers(rows))
}

func (h *Handler) productProfit(c *gin.Context) {
	q, ok := h.bindReportQuery(c)
	if !ok {
		return
	}
	dr, ok := h.rangeOf(c, q)
	if !ok {
		return
	}
	rows, err := h.reporter.ProductProfit(c.Request.Context(), dr)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.writeReport(c, q, "product-profit", rows, reports.ProductProfits(rows))
}

func (h *Handler) profitAndLoss(c *gin.Context) {
	q, ok := h.bindReportQuery(c)
	if !ok {
		return
	}
	dr, ok := h.rangeOf(c, q)
	if !ok {
		return
	}
	resp, err := h.reporter.ProfitAndLoss(c.Request.Context(), dr)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.writeReport(c, q, "profit-and-loss", resp, resp)
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/billing_backend/models"
	"github.com/mmdatafocus/billing_backend/utils"
)

type invoiceListQuery struct {
	listQuery
	CustomerId int `form:"customer_id"`
}

func (h *Handler) peekInvoiceNumber(c *gin.Context) {
	number, err := h.engine.PeekNextInvoiceNumber(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoice_number": number})
}

func (h *Handler) createInvoice(c *gin.Context) {
	var input models.NewSalesInvoice
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, err)
		return
	}
	invoice, err := h.engine.CreateSalesInvoice(c.Request.Context(), &input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, invoice)
}

func (h *Handler) listInvoices(c *gin.Context) {
	var q invoiceListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.respondError(c, utils.ValidationError("invalid query: %s", err.Error()))
		return
	}
	from, to, err := q.dates()
	if err != nil {
		h.respondError(c, err)
		return
	}
	filter := models.SalesInvoiceFilter{
		CustomerId: q.CustomerId,
		From:       from,
		To:         to,
		Limit:      q.Limit,
		Offset:     q.Offset,
	}
	for _, s := range q.statuses() {
		filter.Statuses = append(filter.Statuses, models.InvoiceStatus(s))
	}
	invoices, err := h.engine.ListSalesInvoices(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if invoices == nil {
		invoices = []*models.SalesInvoice{}
	}
	c.JSON(http.StatusOK, invoices)
}

func (h *Handler) getInvoice(c *gin.Context) {
	id, err := pathId(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	invoice, err := h.engine.GetSalesInvoice(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (h *Handler) updateInvoice(c *gin.Context) {
	id, err := pathId(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var input models.UpdateSalesInvoice
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, err)
		return
	}
	invoice, err := h.engine.UpdateSalesInvoice(c.Request.Context(), id, &input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (h *Handler) deleteInvoice(c *gin.Context) {
	id, err := pathId(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.engine.DeleteSalesInvoice(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) createInvoicePayment(c *gin.Context) {
	id, err := pathId(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var input models.NewPayment
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, err)
		return
	}
	result, err := h.engine.RecordInvoicePayment(c.Request.Context(), id, &input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *Handler) listInvoicePayments(c *gin.Context) {
	id, err := pathId(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	payments, err := h.engine.ListInvoicePayments(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if payments == nil {
		payments = []*models.InvoicePayment{}
	}
	c.JSON(http.StatusOK, payments)
}

func (h *Handler) deleteInvoicePayment(c *gin.Context) {
	id, err := pathId(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	paymentId, err := pathId(c, "paymentId")
	if err != nil {
		h.respondError(c, err)
		return
	}
	invoice, err := h.engine.DeleteInvoicePayment(c.Request.Context(), id, paymentId)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (h *Handler) recomputeInvoice(c *gin.Context) {
	id, err := pathId(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	invoice, err := h.engine.RecomputeInvoicePayments(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

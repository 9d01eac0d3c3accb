package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/billing_backend/models"
	"github.com/mmdatafocus/billing_backend/utils"
)

type billListQuery struct {
	listQuery
	SupplierId int `form:"supplier_id"`
}

func (h *Handler) createBill(c *gin.Context) {
	var input models.NewPurchaseBill
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, err)
		return
	}
	bill, err := h.engine.CreatePurchaseBill(c.Request.Context(), &input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bill)
}

func (h *Handler) listBills(c *gin.Context) {
	var q billListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.respondError(c, utils.ValidationError("invalid query: %s", err.Error()))
		return
	}
	from, to, err := q.dates()
	if err != nil {
		h.respondError(c, err)
		return
	}
	filter := models.PurchaseBillFilter{
		SupplierId: q.SupplierId,
		From:       from,
		To:         to,
		Limit:      q.Limit,
		Offset:     q.Offset,
	}
	for _, s := range q.statuses() {
		filter.Statuses = append(filter.Statuses, models.BillStatus(s))
	}
	bills, err := h.engine.ListPurchaseBills(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if bills == nil {
		bills = []*models.PurchaseBill{}
	}
	c.JSON(http.StatusOK, bills)
}

func (h *Handler) getBill(c *gin.Context) {
	id, err := pathId(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	bill, err := h.engine.GetPurchaseBill(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bill)
}

func (h *Handler) updateBill(c *gin.Context) {
	id, err := pathId(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var input models.NewPurchaseBill
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, err)
		return
	}
	bill, err := h.engine.UpdatePurchaseBill(c.Request.Context(), id, &input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bill)
}

func (h *Handler) deleteBill(c *gin.Context) {
	id, err := pathId(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.engine.DeletePurchaseBill(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) recordBill(c *gin.Context) {
	id, err := pathId(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	bill, err := h.engine.RecordPurchaseBill(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bill)
}

func (h *Handler) createBillPayment(c *gin.Context) {
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
	result, err := h.engine.RecordBillPayment(c.Request.Context(), id, &input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *Handler) listBillPayments(c *gin.Context) {
	id, err := pathId(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	payments, err := h.engine.ListBillPayments(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if payments == nil {
		payments = []*models.BillPayment{}
	}
	c.JSON(http.StatusOK, payments)
}

func (h *Handler) deleteBillPayment(c *gin.Context) {
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
	bill, err := h.engine.DeleteBillPayment(c.Request.Context(), id, paymentId)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bill)
}

func (h *Handler) recomputeBill(c *gin.Context) {
	id, err := pathId(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	bill, err := h.engine.RecomputeBillPayments(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bill)
}

package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/billing_backend/config"
	"github.com/mmdatafocus/billing_backend/models/reports"
	"github.com/mmdatafocus/billing_backend/utils"
	"github.com/mmdatafocus/billing_backend/workflow"
	"github.com/sirupsen/logrus"
)

// Handler maps REST requests onto engine and report operations.
// The tenant always comes from the request context set by AuthMiddleware.
type Handler struct {
	engine   *workflow.Engine
	reporter *reports.Reporter
	logger   *logrus.Logger
}

func NewHandler(engine *workflow.Engine, reporter *reports.Reporter, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = config.GetLogger()
	}
	return &Handler{engine: engine, reporter: reporter, logger: logger}
}

// Register mounts every tenant scoped route on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/tenant", h.getTenant)

	r.GET("/invoice-numbers/next", h.peekInvoiceNumber)
	r.POST("/invoices", h.createInvoice)
	r.GET("/invoices", h.listInvoices)
	r.GET("/invoices/:id", h.getInvoice)
	r.PATCH("/invoices/:id", h.updateInvoice)
	r.DELETE("/invoices/:id", h.deleteInvoice)
	r.POST("/invoices/:id/payments", h.createInvoicePayment)
	r.GET("/invoices/:id/payments", h.listInvoicePayments)
	r.DELETE("/invoices/:id/payments/:paymentId", h.deleteInvoicePayment)
	r.POST("/invoices/:id/recompute", h.recomputeInvoice)

	r.POST("/purchase-bills", h.createBill)
	r.GET("/purchase-bills", h.listBills)
	r.GET("/purchase-bills/:id", h.getBill)
	r.PUT("/purchase-bills/:id", h.updateBill)
	r.DELETE("/purchase-bills/:id", h.deleteBill)
	r.POST("/purchase-bills/:id/record", h.recordBill)
	r.POST("/purchase-bills/:id/payments", h.createBillPayment)
	r.GET("/purchase-bills/:id/payments", h.listBillPayments)
	r.DELETE("/purchase-bills/:id/payments/:paymentId", h.deleteBillPayment)
	r.POST("/purchase-bills/:id/recompute", h.recomputeBill)

	reportsGroup := r.Group("/reports")
	reportsGroup.GET("/sales-summary", h.salesSummary)
	reportsGroup.GET("/invoice-summary", h.invoiceSummary)
	reportsGroup.GET("/outstanding", h.outstanding)
	reportsGroup.GET("/tax-summary", h.taxSummary)
	reportsGroup.GET("/revenue-trend", h.revenueTrend)
	reportsGroup.GET("/top-products", h.topProducts)
	reportsGroup.GET("/top-customers", h.topCustomers)
	reportsGroup.GET("/product-profit", h.productProfit)
	reportsGroup.GET("/profit-and-loss", h.profitAndLoss)
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(err error) int {
	switch utils.KindOf(err) {
	case utils.KindValidation:
		return http.StatusBadRequest
	case utils.KindNotFound:
		return http.StatusNotFound
	case utils.KindConflict:
		return http.StatusConflict
	case utils.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status := StatusOf(err)
	body := gin.H{"error": err.Error(), "kind": utils.KindOf(err)}

	var appErr *utils.AppError
	if errors.As(err, &appErr) && appErr.Compensation != nil {
		body["compensation_error"] = appErr.Compensation.Error()
	}
	if cid, ok := utils.GetCorrelationIdFromContext(c.Request.Context()); ok {
		body["correlation_id"] = cid
	}
	if status >= http.StatusInternalServerError {
		h.logger.WithFields(logrus.Fields{
			"path":           c.FullPath(),
			"method":         c.Request.Method,
			"correlation_id": body["correlation_id"],
		}).Error(err.Error())
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

func pathId(c *gin.Context, name string) (int, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, utils.ValidationError("invalid %s %q", name, c.Param(name))
	}
	return id, nil
}

func bindJSON(c *gin.Context, input any) error {
	if err := c.ShouldBindJSON(input); err != nil {
		return utils.ValidationError("invalid request body: %s", err.Error())
	}
	return nil
}

// listQuery is the shared query string of list endpoints.
type listQuery struct {
	Status string `form:"status"`
	From   string `form:"from"`
	To     string `form:"to"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

func (q listQuery) statuses() []string {
	var out []string
	for _, s := range strings.Split(q.Status, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (q listQuery) dates() (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if q.From != "" {
		t, err := utils.ParseDate(q.From)
		if err != nil {
			return nil, nil, err
		}
		from = &t
	}
	if q.To != "" {
		t, err := utils.ParseDate(q.To)
		if err != nil {
			return nil, nil, err
		}
		to = &t
	}
	return from, to, nil
}

func (h *Handler) getTenant(c *gin.Context) {
	tenant, err := h.engine.GetTenant(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tenant)
}

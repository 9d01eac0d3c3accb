package reports

import (
	"context"
	"time"

	"github.com/mmdatafocus/billing_backend/config"
	"github.com/mmdatafocus/billing_backend/utils"
	"github.com/sirupsen/logrus"
)

// reportSlowMs is the threshold above which a report run is logged. Env REPORT_SLOW_MS, default 500.
func reportSlowMs() int64 {
	ms := config.IntFromEnv("REPORT_SLOW_MS", 500)
	if ms <= 0 {
		return 500
	}
	return int64(ms)
}

// logSlow is deferred at the top of every report.
func (r *Reporter) logSlow(ctx context.Context, name string, started time.Time) {
	d := time.Since(started)
	if d.Milliseconds() < reportSlowMs() {
		return
	}
	tenantId, _ := utils.GetTenantIdFromContext(ctx)
	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	r.logger.WithFields(logrus.Fields{
		"report":         name,
		"ms":             d.Milliseconds(),
		"tenant_id":      tenantId,
		"correlation_id": cid,
	}).Warn("slow_report")
}

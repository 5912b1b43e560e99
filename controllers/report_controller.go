package controllers

import (
	"net/http"

	"github.com/Ashnagdarc/Nest-sub004/app"

	"github.com/gin-gonic/gin"
)

type ReportController struct{ *Srv }

func GetReportController(s *Srv) *ReportController { return &ReportController{Srv: s} }

// GET /api/reports/utilization (admin)
func (rp *ReportController) Utilization(c *gin.Context) {
	rows, err := rp.Repo.UtilizationReport(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"items": rows})
}

// GET /api/reports/overdue (admin)
func (rp *ReportController) Overdue(c *gin.Context) {
	rows, err := rp.Repo.OverdueReport(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"items": rows})
}

// POST /api/reports/overdue/sweep (admin)
// Flips open requests past their due date to Overdue.
func (rp *ReportController) SweepOverdue(c *gin.Context) {
	uid, _ := currentUserID(c)
	ids, err := rp.Repo.MarkOverdueRequests(c.Request.Context(), uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"marked": ids})
}

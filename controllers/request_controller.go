package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Ashnagdarc/Nest-sub004/app"
	"github.com/Ashnagdarc/Nest-sub004/db"
	"github.com/Ashnagdarc/Nest-sub004/models"

	"github.com/gin-gonic/gin"
)

type RequestController struct{ *Srv }

func GetRequestController(s *Srv) *RequestController { return &RequestController{Srv: s} }

// POST /api/requests
func (rc *RequestController) CreateRequest(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, app.H{"error": "unauthorized"})
		return
	}
	var in struct {
		Reason string         `json:"reason"`
		DueAt  *time.Time     `json:"dueAt"`
		Lines  []db.LineInput `json:"lines" binding:"required,min=1,dive"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}

	req, err := rc.Repo.CreateRequest(c.Request.Context(), db.CreateRequestInput{
		UserID: uid,
		Reason: in.Reason,
		DueAt:  in.DueAt,
		Lines:  in.Lines,
	})
	if err != nil {
		if errors.Is(err, db.ErrNoLines) {
			c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, req)
}

// GET /api/requests?status=&page=&size=
// Admins see everyone's requests; everyone else only their own.
func (rc *RequestController) ListRequests(c *gin.Context) {
	uid, _ := currentUserID(c)
	q := db.RequestQuery{Status: c.Query("status"), UserID: uid}
	if isAdmin(c) {
		q.UserID = c.Query("userId")
	}
	q.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	q.Size, _ = strconv.Atoi(c.DefaultQuery("size", "20"))

	res, err := rc.Repo.ListRequests(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /api/requests/:id
func (rc *RequestController) GetRequest(c *gin.Context) {
	req, err := rc.Repo.FindRequestByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, app.H{"error": "request not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	uid, _ := currentUserID(c)
	if req.UserID != uid && !isAdmin(c) {
		c.JSON(http.StatusForbidden, app.H{"error": "forbidden"})
		return
	}
	history, err := rc.Repo.RequestHistory(c.Request.Context(), req.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"request": req, "history": history})
}

// POST /api/requests/:id/approve (admin)
func (rc *RequestController) ApproveRequest(c *gin.Context) {
	rc.transition(c, models.RequestStatusApproved, "request approved", "")
}

// POST /api/requests/:id/reject (admin, reason required)
func (rc *RequestController) RejectRequest(c *gin.Context) {
	var in struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || strings.TrimSpace(in.Reason) == "" {
		c.JSON(http.StatusBadRequest, app.H{"error": "rejection reason is required"})
		return
	}
	rc.transition(c, models.RequestStatusRejected, "request rejected", in.Reason)
}

// POST /api/requests/:id/cancel (owner)
func (rc *RequestController) CancelRequest(c *gin.Context) {
	uid, _ := currentUserID(c)
	req, err := rc.Repo.FindRequestByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, app.H{"error": "request not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	if req.UserID != uid && !isAdmin(c) {
		c.JSON(http.StatusForbidden, app.H{"error": "forbidden"})
		return
	}
	rc.transition(c, models.RequestStatusCancelled, "request cancelled", "")
}

// POST /api/requests/:id/checkout (admin)
func (rc *RequestController) Checkout(c *gin.Context) {
	uid, _ := currentUserID(c)
	req, err := rc.Repo.MarkCheckedOut(c.Request.Context(), c.Param("id"), uid)
	if err != nil {
		switch {
		case errors.Is(err, db.ErrNotFound):
			c.JSON(http.StatusNotFound, app.H{"error": "request not found"})
		case errors.Is(err, db.ErrBadStatusChange):
			c.JSON(http.StatusConflict, app.H{"error": "request is not approved"})
		case errors.Is(err, db.ErrInsufficientGear):
			c.JSON(http.StatusConflict, app.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		}
		return
	}
	rc.notifyRequest(c, req, "request.checkedout", "Gear checked out",
		"Your requested gear has been handed over.")
	c.JSON(http.StatusOK, req)
}

func (rc *RequestController) transition(c *gin.Context, status, title, note string) {
	uid, _ := currentUserID(c)
	req, err := rc.Repo.SetRequestStatus(c.Request.Context(), c.Param("id"), status, uid, note)
	if err != nil {
		switch {
		case errors.Is(err, db.ErrNotFound):
			c.JSON(http.StatusNotFound, app.H{"error": "request not found"})
		case errors.Is(err, db.ErrRequestClosed), errors.Is(err, db.ErrBadStatusChange):
			c.JSON(http.StatusConflict, app.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		}
		return
	}

	msg := "Your gear request is now " + status + "."
	if note != "" {
		msg += " Reason: " + note
	}
	rc.notifyRequest(c, req, "request."+strings.ToLower(status), title, msg)
	c.JSON(http.StatusOK, req)
}

func (rc *RequestController) notifyRequest(c *gin.Context, req *models.GearRequest, typ, title, msg string) {
	ev := notifyEvent(c, rc.Repo, req.UserID, typ, title, msg)
	ev.DedupeKey = typ + ":" + req.ID + ":" + req.Status
	rc.Notify.Dispatch(c.Request.Context(), ev)
}

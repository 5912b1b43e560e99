package routes

import (
	"time"

	"github.com/Ashnagdarc/Nest-sub004/app"
	"github.com/Ashnagdarc/Nest-sub004/controllers"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	s := controllers.GetSrv(a)
	repo := s.Repo

	authCtl := controllers.GetAuthController(s)
	userCtl := controllers.GetUserController(s)
	gearCtl := controllers.GetGearController(s)
	reqCtl := controllers.GetRequestController(s)
	checkinCtl := controllers.GetCheckinController(s)
	notifCtl := controllers.GetNotificationController(s)
	reportCtl := controllers.GetReportController(s)
	inviteCtl := controllers.GetInviteController(s)

	authMW := app.AuthRequired(a.AppSessions(), repo)
	adminMW := app.AdminOnly()
	seenMW := app.TouchLastSeen(repo, a.RDB, 5*time.Minute)

	// ------------------------------
	// Auth (public + protected)
	// ------------------------------
	auth := r.Group("/auth")
	{
		auth.POST("/register", authCtl.Register)
		auth.POST("/login", authCtl.Login)
	}
	authed := auth.Group("", authMW, seenMW)
	{
		authed.POST("/logout", authCtl.Logout)
		authed.GET("/whoami", authCtl.WhoAmI)
	}

	// ------------------------------
	// Invites + user management (admin)
	// ------------------------------
	admin := r.Group("/admin", authMW, adminMW)
	{
		admin.POST("/invites", inviteCtl.CreateInvite)
	}

	users := r.Group("/api/users", authMW, adminMW)
	{
		users.GET("", userCtl.ListUsers) // ?q=&page=&size=
		users.GET("/:id", userCtl.GetUser)
		users.DELETE("/:id", userCtl.DeleteUser)
	}

	// ------------------------------
	// Gear catalog
	// ------------------------------
	gears := r.Group("/api/gears", authMW, seenMW)
	{
		gears.GET("", gearCtl.ListGears)
		gears.GET("/:id", gearCtl.GetGear)
	}
	gearsAdmin := r.Group("/api/gears", authMW, adminMW)
	{
		gearsAdmin.POST("", gearCtl.CreateGear)
	}

	// ------------------------------
	// Requests
	// ------------------------------
	requests := r.Group("/api/requests", authMW, seenMW)
	{
		requests.POST("", reqCtl.CreateRequest)
		requests.GET("", reqCtl.ListRequests)
		requests.GET("/:id", reqCtl.GetRequest)
		requests.POST("/:id/cancel", reqCtl.CancelRequest)
	}
	requestsAdmin := r.Group("/api/requests", authMW, adminMW)
	{
		requestsAdmin.POST("/:id/approve", reqCtl.ApproveRequest)
		requestsAdmin.POST("/:id/reject", reqCtl.RejectRequest)
		requestsAdmin.POST("/:id/checkout", reqCtl.Checkout)
	}

	// ------------------------------
	// Check-ins and reconciliation
	// ------------------------------
	checkins := r.Group("/api/checkins", authMW, seenMW)
	{
		checkins.POST("", checkinCtl.CreateCheckin)
		checkins.GET("", checkinCtl.ListCheckins) // ?limit=&page=&status=&userId=
	}
	checkinsAdmin := r.Group("/api/checkins", authMW, adminMW)
	{
		checkinsAdmin.POST("/approve", checkinCtl.Approve)
		checkinsAdmin.POST("/approve-group", checkinCtl.ApproveGroup)
		checkinsAdmin.POST("/reject", checkinCtl.Reject)
	}

	// ------------------------------
	// Notifications
	// ------------------------------
	notifs := r.Group("/api/notifications", authMW, seenMW)
	{
		notifs.GET("", notifCtl.List)
		notifs.POST("/read", notifCtl.MarkRead)
	}
	notifsAdmin := r.Group("/api/notifications", authMW, adminMW)
	{
		notifsAdmin.POST("/google-chat", notifCtl.GoogleChat)
	}

	// ------------------------------
	// Reports (admin)
	// ------------------------------
	reports := r.Group("/api/reports", authMW, adminMW)
	{
		reports.GET("/utilization", reportCtl.Utilization)
		reports.GET("/overdue", reportCtl.Overdue)
		reports.POST("/overdue/sweep", reportCtl.SweepOverdue)
	}
}

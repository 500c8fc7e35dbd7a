package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/zaqqye/college_portal_backend/internal/config"
	"github.com/zaqqye/college_portal_backend/internal/controllers"
	"github.com/zaqqye/college_portal_backend/internal/logging"
	"github.com/zaqqye/college_portal_backend/internal/mailer"
	"github.com/zaqqye/college_portal_backend/internal/middleware"
	"github.com/zaqqye/college_portal_backend/internal/models"
	"github.com/zaqqye/college_portal_backend/internal/ws"
)

// Deps carries the long-lived services the handlers share.
type Deps struct {
	DB         *gorm.DB
	Cfg        *config.Config
	Mailer     *mailer.Mailer
	Log        logging.Logger
	Hubs       *ws.Hubs
	// Responses is the shared response cache store. Each cached listing
	// keeps its own namespace in it.
	Responses  *cache.Cache
	UsedTokens *cache.Cache
}

func Register(r *gin.Engine, d Deps) {
	db, cfg := d.DB, d.Cfg
	if d.Responses == nil {
		d.Responses = cache.New(cfg.RoomsCacheTTL(), 2*cfg.RoomsCacheTTL())
	}
	if d.UsedTokens == nil {
		d.UsedTokens = cache.New(cfg.ActionTokenTTL(), time.Hour)
	}

	authCtrl := &controllers.AuthController{DB: db, Mailer: d.Mailer, Log: d.Log, JWTSecret: cfg.JWTSecret, TokenTTL: cfg.TokenTTL()}
	studentCtrl := &controllers.StudentController{DB: db, Log: d.Log}
	roomsCache := middleware.NewResponseCache(d.Responses, "hostel-rooms", cfg.RoomsCacheTTL())
	hostelCtrl := &controllers.HostelController{DB: db, Mailer: d.Mailer, Log: d.Log, Hubs: d.Hubs, RoomsCache: roomsCache}
	gatepassCtrl := &controllers.GatepassController{
		DB:           db,
		Mailer:       d.Mailer,
		Log:          d.Log,
		Hubs:         d.Hubs,
		FrontendURL:  cfg.FrontendURL,
		ActionSecret: cfg.ActionTokenSecret,
		ActionTTL:    cfg.ActionTokenTTL(),
		UsedTokens:   d.UsedTokens,
	}
	paymentCtrl := &controllers.PaymentController{DB: db, Log: d.Log, HostelFee: cfg.HostelFeeAmount()}

	perSec, burst := cfg.RateLimit()
	limited := middleware.RateLimit(middleware.NewIPRateLimiter(rate.Limit(perSec), burst))
	authMW := middleware.AuthMiddleware(db, middleware.AuthConfig{JWTSecret: cfg.JWTSecret})

	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "message": "Server is running"})
	})

	// Public
	auth := r.Group("/api/auth")
	{
		auth.POST("/signup", limited, authCtrl.Signup)
		auth.POST("/login", limited, authCtrl.Login)
		auth.POST("/verify-otp", limited, authCtrl.VerifyOTP)
		auth.POST("/resend-otp", limited, authCtrl.ResendOTP)
		auth.GET("/me", authMW, authCtrl.Me)
	}

	student := r.Group("/api/student", authMW, middleware.RequireRoles(models.RoleStudent))
	{
		student.GET("/profile", studentCtrl.Profile)
		student.POST("/complaints", studentCtrl.CreateComplaint)
		student.GET("/complaints", studentCtrl.ListComplaints)
		student.POST("/feedback", studentCtrl.CreateFeedback)
		student.GET("/fines", studentCtrl.ListFines)

		student.GET("/hostel/rooms", roomsCache.Handler(), hostelCtrl.ListAvailableRooms)
		student.POST("/hostel/apply", hostelCtrl.ApplyForRoom)
		student.GET("/hostel/allotment", hostelCtrl.MyAllotment)
	}

	// Staff areas share one handler set, scoped by department.
	staff := []struct {
		path string
		role models.Role
	}{
		{"/api/librarian", models.RoleLibrarian},
		{"/api/teacher", models.RoleTeacher},
		{"/api/warden", models.RoleWarden},
	}
	for _, s := range staff {
		dept, _ := models.DepartmentFor(s.role)
		deptCtrl := &controllers.DepartmentController{DB: db, Mailer: d.Mailer, Log: d.Log, Department: dept, PortalURL: cfg.FrontendURL}
		g := r.Group(s.path, authMW, middleware.RequireRoles(s.role))
		g.GET("/complaints", deptCtrl.ListComplaints)
		g.PUT("/complaints/:id", deptCtrl.UpdateComplaint)
		g.POST("/fines", deptCtrl.ImposeFine)
		g.GET("/fines", deptCtrl.ListFines)
		g.DELETE("/fines/:id", deptCtrl.DeleteFine)
		g.GET("/feedback", deptCtrl.ListFeedback)
		g.PUT("/feedback/:id/read", deptCtrl.MarkFeedbackRead)
		g.DELETE("/feedback/:id", deptCtrl.DeleteFeedback)

		if s.role == models.RoleWarden {
			g.GET("/rooms", hostelCtrl.ListRooms)
			g.POST("/rooms", hostelCtrl.AddRoom)
			g.POST("/rooms/import", hostelCtrl.ImportRooms)
			g.PUT("/rooms/:id", hostelCtrl.UpdateRoom)
			g.DELETE("/rooms/:id", hostelCtrl.DeleteRoom)
			g.GET("/allotments", hostelCtrl.ListAllotments)
			g.PUT("/allotments/:id", hostelCtrl.DecideAllotment)
		}
	}

	gatepass := r.Group("/api/gatepass")
	{
		// Guardians are not account holders; the signed link is the credential.
		gatepass.POST("/parent-action", limited, gatepassCtrl.ParentAction)

		asStudent := []gin.HandlerFunc{authMW, middleware.RequireRoles(models.RoleStudent)}
		asWarden := []gin.HandlerFunc{authMW, middleware.RequireRoles(models.RoleWarden)}
		gatepass.POST("/apply", append(asStudent, gatepassCtrl.Apply)...)
		gatepass.GET("/my", append(asStudent, gatepassCtrl.My)...)
		gatepass.GET("/:id/qr", append(asStudent, gatepassCtrl.QR)...)
		gatepass.GET("/pending", append(asWarden, gatepassCtrl.Pending)...)
		gatepass.GET("/all", append(asWarden, gatepassCtrl.All)...)
		gatepass.PUT("/:id/action", append(asWarden, gatepassCtrl.WardenAction)...)
	}

	payments := r.Group("/api/payments", authMW, middleware.RequireRoles(models.RoleStudent))
	{
		payments.POST("/fines/:fineId/pay", paymentCtrl.PayFine)
		payments.POST("/hostel/:allotmentId/pay", paymentCtrl.PayHostelFee)
		payments.GET("", paymentCtrl.ListPayments)
	}

	// Browsers cannot set headers on a websocket upgrade, so the token may
	// ride in ?token=.
	wsAuth := middleware.AuthMiddleware(db, middleware.AuthConfig{JWTSecret: cfg.JWTSecret, AllowQueryToken: true})
	r.GET("/api/ws/warden", wsAuth, middleware.RequireRoles(models.RoleWarden), ws.WardenHandler(d.Hubs))
	r.GET("/api/ws/student", wsAuth, middleware.RequireRoles(models.RoleStudent), ws.StudentHandler(d.Hubs))
}

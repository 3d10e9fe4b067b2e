// Package server exposes the course service over the REST API used by the
// homework views.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"homework/internal/auth"
	"homework/internal/course"
	"homework/internal/httpmiddleware"
)

// Config wires the router.
type Config struct {
	Service *course.Service
	Logger  *zap.Logger

	RateLimitPerMin int
	AllowOrigins    []string

	// AdminPasswordHash enables admin login and protects admin routes when set.
	AdminPasswordHash string
	JWTSigningKey     string
	JWTIssuer         string
	AccessTTL         time.Duration

	// Checks are reported by /healthz; any false answer is a 503.
	Checks map[string]func(ctx context.Context) bool

	Registry *prometheus.Registry
}

// New builds the gin engine.
func New(cfg Config) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(log, "/healthz", "/metrics"))
	r.Use(httpmiddleware.NewMetrics(reg).GinMiddleware())
	r.Use(corsMiddleware(cfg.AllowOrigins))
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewClientLimiter(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	r.GET("/healthz", healthz(cfg.Checks))

	h := &Handler{svc: cfg.Service, log: log, cfg: cfg}

	api := r.Group("/api")
	{
		api.GET("/homework", h.ListHomework)
		api.POST("/homework/upload", h.UploadHomework)
		api.GET("/submissions", h.ListSubmissions)
		api.DELETE("/submissions/:homeworkId/:studentId", h.DeleteSubmission)
		api.GET("/query", h.Query)
		api.POST("/leave", h.SubmitLeave)
		api.GET("/update-notice", h.Notice)
		api.POST("/admin/login", h.Login)
	}

	admin := api.Group("")
	if cfg.AdminPasswordHash != "" {
		admin.Use(auth.AdminAuth(cfg.JWTSigningKey, cfg.JWTIssuer))
	}
	{
		admin.GET("/students", h.ListStudents)
		admin.POST("/students", h.AddStudent)
		admin.PUT("/students/:id", h.UpdateStudent)
		admin.DELETE("/students/:id", h.DeleteStudent)

		admin.POST("/homework", h.AddHomework)
		admin.PUT("/homework/:id", h.UpdateHomework)
		admin.DELETE("/homework/:id", h.DeleteHomework)
		admin.POST("/homework/:id/download-all", h.DownloadAll)

		admin.GET("/missing-submissions", h.MissingSubmissions)
		admin.GET("/submissions/:homeworkId/:studentId/:filename", h.DownloadSubmission)

		admin.GET("/leave/list", h.ListLeaves)
		admin.POST("/leave/approve/:id", h.ApproveLeave)
		admin.POST("/leave/reject/:id", h.RejectLeave)

		admin.POST("/clear-cache", h.ClearCache)
	}

	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Disposition", httpmiddleware.TraceHeader},
		MaxAge:        24 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}

func healthz(checks map[string]func(ctx context.Context) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{"status": "ok"}
		status := http.StatusOK
		for name, check := range checks {
			ok := check(c.Request.Context())
			body[name] = ok
			if !ok {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
			}
		}
		c.JSON(status, body)
	}
}

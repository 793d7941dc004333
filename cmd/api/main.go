package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"campuslife/internal/auth"
	"campuslife/internal/cloudinary"
	"campuslife/internal/config"
	"campuslife/internal/httpmiddleware"
	"campuslife/internal/logger"
	"campuslife/internal/mess"
	"campuslife/internal/profile"
	"campuslife/internal/queue"
	"campuslife/internal/store"
	"campuslife/internal/timetable"
	"campuslife/migrations"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Get()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("http server failed")
	}
}

func runHTTP(cfg config.App, log zerolog.Logger) error {
	db, err := store.NewDB(context.Background(), cfg.DatabaseURL, store.Pool{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
		ConnMaxLife:  cfg.DBConnMaxLife,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.Up(db.Client); err != nil {
		return err
	}

	redisClient := store.NewRedis(cfg.RedisAddr, cfg.RedisDialTimeout)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "mess:redemptions")
	}

	authRepo := auth.NewRepository(db.Client)
	ttRepo := timetable.NewRepository(db.Client)
	ttSvc := timetable.NewService(ttRepo, log)
	coupons := mess.NewCouponIssuer(cfg.JWTIssuer, cfg.JWTSigningKey)
	messRepo := mess.NewRepository(db.Client)
	messSvc := mess.NewService(messRepo, coupons, redisClient.Client, q, log)
	messCounters := mess.NewCounters(redisClient.Client)
	profileRepo := profile.NewRepository(db.Client)

	// Cloudinary client (nil when not configured)
	var cdnClient *cloudinary.Client
	if cfg.CloudinaryCloudName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		cdnClient = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		log.Info().Str("cloud", cfg.CloudinaryCloudName).Msg("cloudinary configured")
	} else {
		log.Info().Msg("cloudinary not configured, avatar uploads disabled")
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewRateLimiter(cfg.RateLimitPerMin, cfg.RateLimitBurst).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	r.POST("/v1/devices/register", func(c *gin.Context) {
		var req struct {
			DeviceID string `json:"device_id" binding:"required"`
			Role     string `json:"role"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		role := req.Role
		if role == "" {
			role = auth.RoleStudent
		}
		if role != auth.RoleStudent && role != auth.RoleScanner {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
			return
		}

		if err := authRepo.UpsertDevice(c.Request.Context(), req.DeviceID, role); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		tokens, err := auth.Issue(req.DeviceID, role, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}

		if err := authRepo.SaveRefreshToken(c.Request.Context(), req.DeviceID, tokens.RefreshToken, tokens.RefreshExp); err != nil {
			// the refresh token is unusable if the row is missing, so fail loudly
			log.Error().Err(err).Str("device", req.DeviceID).Msg("refresh token save failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
		})
	})

	r.POST("/v1/devices/refresh", func(c *gin.Context) {
		var req struct {
			RefreshToken string `json:"refresh_token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		claims, err := auth.Parse(req.RefreshToken, cfg.JWTSigningKey, cfg.JWTIssuer)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
			return
		}
		stored, err := authRepo.GetRefreshToken(c.Request.Context(), req.RefreshToken)
		if err != nil {
			log.Error().Err(err).Msg("refresh token lookup failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh failed"})
			return
		}
		if stored == nil || stored.Revoked || time.Now().After(stored.ExpiresAt) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "refresh token expired or revoked"})
			return
		}

		tokens, err := auth.Issue(claims.Subject, claims.Role, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		// rotate: the presented token dies as its replacement is born
		if err := authRepo.RevokeRefreshToken(c.Request.Context(), req.RefreshToken); err != nil {
			log.Error().Err(err).Msg("refresh token revoke failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh failed"})
			return
		}
		if err := authRepo.SaveRefreshToken(c.Request.Context(), stored.DeviceID, tokens.RefreshToken, tokens.RefreshExp); err != nil {
			log.Error().Err(err).Str("device", stored.DeviceID).Msg("refresh token save failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
		})
	})

	r.POST("/v1/devices/revoke", func(c *gin.Context) {
		var req struct {
			RefreshToken string `json:"refresh_token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := authRepo.RevokeRefreshToken(c.Request.Context(), req.RefreshToken); err != nil {
			log.Error().Err(err).Msg("refresh token revoke failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "revoke failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"revoked": true})
	})

	v1 := r.Group("/v1", auth.Bearer(cfg.JWTSigningKey, cfg.JWTIssuer))

	v1.GET("/timetable/today", func(c *gin.Context) {
		entries, kind := ttSvc.Today(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{
			"day":     kind,
			"entries": timetableJSON(entries),
		})
	})

	v1.GET("/timetable/current", func(c *gin.Context) {
		entry := ttSvc.CurrentClass(c.Request.Context())
		if entry == nil {
			c.JSON(http.StatusOK, gin.H{"current": nil})
			return
		}
		c.JSON(http.StatusOK, gin.H{"current": entryJSON(*entry)})
	})

	v1.POST("/timetable/:id/attendance", func(c *gin.Context) {
		entryID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry id"})
			return
		}
		var req struct {
			Status string `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if !ttSvc.MarkAttendance(c.Request.Context(), entryID, timetable.Status(req.Status)) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"recorded": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"recorded": true})
	})

	v1.GET("/mess/coupon", func(c *gin.Context) {
		studentID := auth.FromContext(c).Subject
		coupon, err := messSvc.IssueCoupon(c.Request.Context(), studentID)
		if err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		if c.Query("format") == "json" {
			c.JSON(http.StatusOK, coupon)
			return
		}
		png, err := mess.QRPNG(coupon.Token, cfg.CouponQRSize)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "qr render failed"})
			return
		}
		c.Data(http.StatusOK, "image/png", png)
	})

	v1.POST("/mess/scan", auth.RequireRole(auth.RoleScanner), func(c *gin.Context) {
		var req struct {
			Token string `json:"token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		red, err := messSvc.Redeem(c.Request.Context(), req.Token, auth.FromContext(c).Subject)
		if err != nil {
			c.JSON(scanStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"student_id": red.StudentID,
			"meal":       red.Meal,
			"date":       red.Date.Format("2006-01-02"),
		})
	})

	v1.GET("/mess/stats", auth.RequireRole(auth.RoleScanner), func(c *gin.Context) {
		date := c.Query("date")
		if date == "" {
			date = time.Now().Local().Format("2006-01-02")
		}
		counts, err := messCounters.Day(c.Request.Context(), date)
		if err != nil {
			log.Error().Err(err).Msg("mess stats failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "stats unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"date": date, "counts": counts})
	})

	v1.GET("/mess/history", func(c *gin.Context) {
		limit, offset := 50, 0
		if v := c.Query("limit"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				limit = parsed
			}
		}
		if v := c.Query("offset"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				offset = parsed
			}
		}
		history, err := messSvc.History(c.Request.Context(), auth.FromContext(c).Subject, limit, offset)
		if err != nil {
			log.Error().Err(err).Msg("meal history failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "history unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"meals": history})
	})

	v1.GET("/profile", func(c *gin.Context) {
		student, err := profileRepo.Get(c.Request.Context(), auth.FromContext(c).Subject)
		if err != nil {
			log.Error().Err(err).Msg("profile fetch failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "profile unavailable"})
			return
		}
		if student == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
			return
		}
		c.JSON(http.StatusOK, student)
	})

	v1.POST("/profile/avatar", func(c *gin.Context) {
		if cdnClient == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image storage not configured"})
			return
		}
		studentID := auth.FromContext(c).Subject

		var result *cloudinary.UploadResult
		var err error
		switch {
		case strings.Contains(c.ContentType(), "multipart/form-data"):
			file, _, ferr := c.Request.FormFile("file")
			if ferr != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
				return
			}
			defer file.Close()
			data, ferr := io.ReadAll(file)
			if ferr != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "read file failed"})
				return
			}
			result, err = cdnClient.UploadAvatar(data, studentID)
		default:
			var body struct {
				Data string `json:"data" binding:"required"`
			}
			if berr := c.ShouldBindJSON(&body); berr != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "provide {\"data\": \"<base64 data URL>\"}"})
				return
			}
			result, err = cdnClient.UploadBase64(body.Data, studentID)
		}
		if err != nil {
			log.Error().Err(err).Msg("avatar upload failed")
			c.JSON(http.StatusBadGateway, gin.H{"error": "image upload failed"})
			return
		}

		if err := profileRepo.SetAvatar(c.Request.Context(), studentID, result.SecureURL); err != nil {
			log.Error().Err(err).Msg("avatar save failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "avatar save failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"url": result.SecureURL})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("server forced shutdown")
	}

	log.Info().Msg("server exited")
	return nil
}

func entryJSON(e timetable.Entry) gin.H {
	out := gin.H{
		"id":          e.ID,
		"course_code": e.CourseCode,
		"course_name": e.CourseName,
		"room_number": e.RoomNumber,
		"day_of_week": e.DayOfWeek,
		"start_time":  e.StartTime.Format("15:04"),
		"end_time":    e.EndTime.Format("15:04"),
	}
	if e.TeacherName != nil {
		out["teacher_name"] = *e.TeacherName
	}
	return out
}

func timetableJSON(entries []timetable.ResolvedEntry) []gin.H {
	out := make([]gin.H, 0, len(entries))
	for _, r := range entries {
		item := entryJSON(r.Entry)
		item["status"] = r.Status
		item["status_label"] = r.Status.Label()
		item["status_color"] = r.Status.Color()
		out = append(out, item)
	}
	return out
}

func scanStatus(err error) int {
	switch {
	case errors.Is(err, mess.ErrAlreadyRedeemed):
		return http.StatusConflict
	case errors.Is(err, mess.ErrWrongWindow), errors.Is(err, mess.ErrInvalidCoupon):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
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

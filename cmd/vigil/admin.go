package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/carlmjohnson/versioninfo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	slogecho "github.com/samber/slog-echo"

	"github.com/opensocialmonitor/vigil/normalize"
	"github.com/opensocialmonitor/vigil/platform"
	"github.com/opensocialmonitor/vigil/store"
)

type HealthStatus struct {
	Status  string `json:"status"`
	Daemon  string `json:"daemon"`
	Version string `json:"version"`
	Message string `json:"msg,omitempty"`
}

// RunAPI serves the health check and, when an admin token is configured, the
// operator endpoints for managing accounts and reviewing detections.
func (s *Server) RunAPI(listen string) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(slogecho.New(s.logger))
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = s.errorHandler

	e.GET("/_health", s.handleHealthCheck)

	if s.adminToken != "" {
		admin := e.Group("/admin", s.checkAdminAuth)
		admin.GET("/stats", s.handleStats)
		admin.GET("/detections", s.handleDetections)
		admin.GET("/detections/:id", s.handleGetDetection)
		admin.GET("/coordination/:postID", s.handleCoordination)
		admin.POST("/accounts", s.handleAddAccount)
		admin.POST("/scan/post", s.handleScanPost)
		admin.POST("/detections/:id/review", s.handleReviewDetection)
	} else {
		s.logger.Warn("admin token not configured, admin API disabled")
	}

	s.httpd = &http.Server{
		Handler:        e,
		Addr:           listen,
		WriteTimeout:   1 * time.Minute,
		ReadTimeout:    1 * time.Minute,
		MaxHeaderBytes: 1 * (1024 * 1024),
	}

	s.logger.Info("starting admin API", "listen", listen)
	return s.httpd.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpd == nil {
		return nil
	}
	return s.httpd.Shutdown(ctx)
}

func (s *Server) errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := "internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		msg = fmt.Sprintf("%v", he.Message)
	}
	if code >= 500 {
		s.logger.Warn("admin API internal error", "err", err, "path", c.Path())
	}
	if c.Response().Committed {
		return
	}
	c.JSON(code, map[string]string{"error": msg})
}

func (s *Server) checkAdminAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authheader := c.Request().Header.Get("Authorization")
		pref := "Bearer "
		if !strings.HasPrefix(authheader, pref) {
			return echo.ErrForbidden
		}
		token := authheader[len(pref):]
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
			return echo.ErrForbidden
		}
		return next(c)
	}
}

func (s *Server) handleHealthCheck(c echo.Context) error {
	if err := s.db.Exec("SELECT 1").Error; err != nil {
		s.logger.Error("healthcheck can't connect to database", "err", err)
		return c.JSON(500, HealthStatus{Status: "error", Daemon: "vigil", Version: versioninfo.Short(), Message: "can't connect to database"})
	}
	if s.rdb != nil {
		if _, err := s.rdb.Ping(c.Request().Context()).Result(); err != nil {
			s.logger.Error("healthcheck can't connect to redis", "err", err)
			return c.JSON(500, HealthStatus{Status: "error", Daemon: "vigil", Version: versioninfo.Short(), Message: "can't connect to redis"})
		}
	}
	return c.JSON(200, HealthStatus{Status: "ok", Daemon: "vigil", Version: versioninfo.Short()})
}

func (s *Server) handleStats(c echo.Context) error {
	stats, err := s.store.GetStats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(200, stats)
}

// handleDetections lists detections pending review, or every detection since
// a timestamp when ?since= is given.
func (s *Server) handleDetections(c echo.Context) error {
	ctx := c.Request().Context()

	limit := 50
	if q := c.QueryParam("limit"); q != "" {
		l, err := strconv.Atoi(q)
		if err != nil || l < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = l
	}

	if q := c.QueryParam("since"); q != "" {
		since, err := dateparse.ParseAny(q)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid since timestamp")
		}
		detections, err := s.store.DetectionsSince(ctx, since, limit)
		if err != nil {
			return err
		}
		return c.JSON(200, detections)
	}

	detections, err := s.store.PendingDetections(ctx, limit)
	if err != nil {
		return err
	}
	return c.JSON(200, detections)
}

func (s *Server) handleGetDetection(c echo.Context) error {
	id64, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid detection id")
	}

	det, err := s.store.GetDetection(c.Request().Context(), uint(id64))
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "detection not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(200, det)
}

func (s *Server) handleCoordination(c echo.Context) error {
	reports, err := s.store.CoordinationForPost(c.Request().Context(), c.Param("postID"))
	if err != nil {
		return err
	}
	return c.JSON(200, reports)
}

type addAccountRequest struct {
	Username string `json:"username"`
}

func (s *Server) handleAddAccount(c echo.Context) error {
	ctx := c.Request().Context()

	var req addAccountRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	username := normalize.Username(req.Username)
	if username == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username is required")
	}

	acct, err := s.store.AddMonitoredAccount(ctx, username, "instagram")
	if errors.Is(err, store.ErrDuplicate) {
		return echo.NewHTTPError(http.StatusConflict, "account is already monitored")
	}
	if err != nil {
		return err
	}

	// sweep right away rather than waiting for the scheduler
	if err := s.dispatcher.EnqueueAccount(ctx, username); err != nil {
		s.logger.Error("failed to enqueue initial sweep", "username", username, "err", err)
	}
	return c.JSON(200, acct)
}

type scanPostRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleScanPost(c echo.Context) error {
	ctx := c.Request().Context()

	var req scanPostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.URL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url is required")
	}

	if err := s.engine.ProcessPostURL(ctx, req.URL); err != nil {
		if errors.Is(err, platform.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "post not found")
		}
		return err
	}
	return c.JSON(200, map[string]string{"status": "ok"})
}

type reviewRequest struct {
	Approve bool `json:"approve"`
}

// handleReviewDetection resolves a pending detection. Approving posts the
// public warning reply under the flagged comment before recording the
// decision; rejecting just records it.
func (s *Server) handleReviewDetection(c echo.Context) error {
	ctx := c.Request().Context()

	id64, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid detection id")
	}
	id := uint(id64)

	var req reviewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	det, err := s.store.GetDetection(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "detection not found")
	}
	if err != nil {
		return err
	}
	if det.WarningSent {
		return echo.NewHTTPError(http.StatusConflict, "detection already reviewed")
	}

	if req.Approve {
		if err := s.engine.Platform.PostWarningReply(ctx, det.PostID, det.CommentID, det.Username); err != nil {
			return fmt.Errorf("posting warning reply: %w", err)
		}
	}
	if err := s.store.SetWarningStatus(ctx, id, true, req.Approve); err != nil {
		return err
	}

	det, err = s.store.GetDetection(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(200, det)
}

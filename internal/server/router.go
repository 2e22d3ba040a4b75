package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hyprsave/hyprsave/internal/daemon"
	"github.com/hyprsave/hyprsave/internal/metrics"
)

// Router provides embeddable HTTP handlers for the running daemon.
// Endpoints:
//
//	GET  {basePath}/status       daemon status
//	POST {basePath}/save         capture the session now
//	POST {basePath}/restore      replay the stored snapshot
//	GET  {basePath}/changes      query: limit=N (default 50)
//	GET  {basePath}/metrics      Prometheus exposition
//
// basePath may be empty or start with '/'; no trailing slash.
type Router struct {
	d        *daemon.Daemon
	basePath string
}

// NewRouter constructs a new Router with configurable basePath.
func NewRouter(d *daemon.Daemon, basePath string) *Router {
	return &Router{d: d, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.GET("/status", r.handleStatus)
	group.POST("/save", r.handleSave)
	group.POST("/restore", r.handleRestore)
	group.GET("/changes", r.handleChanges)
	group.GET("/metrics", gin.WrapH(metrics.Handler()))
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
func NewServer(addr, basePath string, d *daemon.Daemon) (*http.Server, error) {
	r := NewRouter(d, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server, nil
}

type errorResp struct {
	Error string `json:"error"`
}

func (r *Router) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, r.d.Status())
}

type saveResp struct {
	Saved     bool      `json:"saved"`
	Timestamp time.Time `json:"timestamp"`
	Windows   int       `json:"windows"`
}

func (r *Router) handleSave(c *gin.Context) {
	snap, err := r.d.SaveNow(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, errorResp{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, saveResp{Saved: true, Timestamp: snap.Timestamp, Windows: len(snap.Windows)})
}

type restoreResp struct {
	Restored bool     `json:"restored"`
	Expected int      `json:"expected_windows"`
	Found    int      `json:"found_windows"`
	Mismatch bool     `json:"mismatch"`
	Launched int      `json:"launched"`
	Warnings []string `json:"warnings,omitempty"`
}

func (r *Router) handleRestore(c *gin.Context) {
	rep, err := r.d.RestoreNow(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, errorResp{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, restoreResp{
		Restored: true,
		Expected: rep.ExpectedWindows,
		Found:    rep.FoundWindows,
		Mismatch: rep.Mismatch,
		Launched: rep.Launched,
		Warnings: rep.Warnings,
	})
}

func (r *Router) handleChanges(c *gin.Context) {
	limit := 50
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, errorResp{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}
	entries, err := r.d.RecentChanges(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, entries)
}

func sanitizeBase(bp string) string {
	bp = strings.TrimSpace(bp)
	if bp == "" || bp == "/" {
		return ""
	}
	if !strings.HasPrefix(bp, "/") {
		bp = "/" + bp
	}
	return strings.TrimRight(bp, "/")
}

package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/selivandex/crypto-digest/pkg/logger"
)

// CheckFunc reports a dependency's health
type CheckFunc func(ctx context.Context) error

// Checker serves liveness and readiness probes
type Checker struct {
	checks    map[string]CheckFunc
	ready     bool
	readyMu   sync.RWMutex
	startTime time.Time
	timeout   time.Duration
}

// HealthStatus represents system health
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ReadinessStatus represents system readiness
type ReadinessStatus struct {
	Ready     bool              `json:"ready"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// NewChecker creates a checker with no dependencies registered
func NewChecker() *Checker {
	return &Checker{
		checks:    make(map[string]CheckFunc),
		startTime: time.Now(),
		timeout:   3 * time.Second,
	}
}

// Register adds a named dependency check. Not safe after serving starts.
func (c *Checker) Register(name string, check CheckFunc) {
	c.checks[name] = check
}

// Names lists registered checks
func (c *Checker) Names() []string {
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetReady marks the service as ready
func (c *Checker) SetReady(ready bool) {
	c.readyMu.Lock()
	defer c.readyMu.Unlock()
	c.ready = ready

	if ready {
		logger.Info("✅ service marked as READY")
	} else {
		logger.Warn("⚠️ service marked as NOT READY")
	}
}

func (c *Checker) isReady() bool {
	c.readyMu.RLock()
	defer c.readyMu.RUnlock()
	return c.ready
}

// run executes every check and reports whether all passed
func (c *Checker) run(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	results := make(map[string]string, len(c.checks))
	allHealthy := true

	for name, check := range c.checks {
		if err := check(ctx); err != nil {
			results[name] = "unhealthy: " + err.Error()
			allHealthy = false
			logger.Warn("dependency unhealthy", zap.String("check", name), zap.Error(err))
			continue
		}
		results[name] = "healthy"
	}

	return results, allHealthy
}

// HandleHealth is the liveness probe. It answers 200 while the process is up,
// with dependency details when ?verbose=true.
func (c *Checker) HandleHealth(ctx *gin.Context) {
	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(c.startTime).Round(time.Second).String(),
	}

	if ctx.Query("verbose") == "true" {
		status.Checks, _ = c.run(ctx.Request.Context())
	}

	ctx.JSON(http.StatusOK, status)
}

// HandleReadiness is the readiness probe: 200 only after startup with all dependencies healthy
func (c *Checker) HandleReadiness(ctx *gin.Context) {
	checks, allHealthy := c.run(ctx.Request.Context())
	isReady := c.isReady() && allHealthy

	status := ReadinessStatus{
		Ready:     isReady,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	if isReady {
		ctx.JSON(http.StatusOK, status)
		return
	}
	ctx.JSON(http.StatusServiceUnavailable, status)
}

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/f-sync/followcheck/internal/session"
)

const (
	healthRoutePath                 = "/healthz"
	metricsRoutePath                = "/metrics"
	reportRoutePath                 = "/report"
	archiveRoutePath                = "/api/archive"
	sampleRoutePath                 = "/api/sample"
	snapshotRoutePath               = "/api/snapshot"
	statsRoutePath                  = "/api/stats"
	listRoutePath                   = "/api/lists/:list"
	exportRoutePath                 = "/api/export/:list"
	ignoredRoutePath                = "/api/ignored"
	ignoredHandleRoutePath          = "/api/ignored/:handle"
	ignoredExportRoutePath          = "/api/ignored/export"
	notFollowingBackEntryRoutePath  = "/api/lists/not-following-back/:handle"
	pendingEntryRoutePath           = "/api/lists/pending/:handle"
	htmlContentType                 = "text/html; charset=utf-8"
	healthStatusKey                 = "status"
	healthStatusOK                  = "ok"
	ginModeRelease                  = "release"
	defaultMaxUploadBytes           = 512 << 20
	errMessageCreateSessionManager  = "create session manager"
	logMessageRouterReady           = "router configured"
	logFieldMaxUploadBytes          = "max_upload_bytes"
	logFieldRestoredSnapshotPresent = "snapshot_loaded"
)

// RouterConfig configures the HTTP surface.
type RouterConfig struct {
	// Session owns the current snapshot. A manager without persistence is created when nil.
	Session *session.Manager
	// Metrics receives ingestion and snapshot metrics. A fresh registry is created when nil.
	Metrics        *Metrics
	Logger         *zap.Logger
	MaxUploadBytes int64
	Clock          func() time.Time
	NewIdentifier  func() string
}

// NewRouter constructs a Gin engine serving the relationship API, the HTML report and metrics.
func NewRouter(configuration RouterConfig) (*gin.Engine, error) {
	logger := configuration.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sessionManager := configuration.Session
	if sessionManager == nil {
		manager, err := session.NewManager(context.Background(), session.Config{Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errMessageCreateSessionManager, err)
		}
		sessionManager = manager
	}
	metrics := configuration.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}
	maxUploadBytes := configuration.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	clock := configuration.Clock
	if clock == nil {
		clock = time.Now
	}
	newIdentifier := configuration.NewIdentifier
	if newIdentifier == nil {
		newIdentifier = uuid.NewString
	}

	gin.SetMode(ginModeRelease)
	engine := gin.New()
	engine.Use(gin.Recovery())

	handler := apiHandler{
		session:        sessionManager,
		metrics:        metrics,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
		clock:          clock,
		newIdentifier:  newIdentifier,
	}
	current, loaded := sessionManager.Current()
	metrics.observeSnapshot(current, loaded)

	engine.GET(healthRoutePath, handler.healthStatus)
	engine.GET(metricsRoutePath, gin.WrapH(metrics.Handler()))
	engine.GET(reportRoutePath, handler.serveReport)

	engine.POST(archiveRoutePath, handler.uploadArchive)
	engine.POST(sampleRoutePath, handler.generateSample)
	engine.GET(snapshotRoutePath, handler.serveSnapshot)
	engine.DELETE(snapshotRoutePath, handler.clearSnapshot)
	engine.GET(statsRoutePath, handler.serveStatistics)
	engine.GET(listRoutePath, handler.serveList)
	engine.GET(exportRoutePath, handler.exportList)

	engine.POST(ignoredRoutePath, handler.importIgnored)
	engine.DELETE(ignoredRoutePath, handler.clearIgnored)
	engine.GET(ignoredExportRoutePath, handler.exportIgnored)
	engine.PUT(ignoredHandleRoutePath, handler.addIgnored)
	engine.DELETE(ignoredHandleRoutePath, handler.removeIgnored)
	engine.DELETE(notFollowingBackEntryRoutePath, handler.removeNotFollowingBack)
	engine.DELETE(pendingEntryRoutePath, handler.removePending)

	logger.Debug(logMessageRouterReady,
		zap.Int64(logFieldMaxUploadBytes, maxUploadBytes),
		zap.Bool(logFieldRestoredSnapshotPresent, loaded),
	)
	return engine, nil
}

func (handler apiHandler) healthStatus(ginContext *gin.Context) {
	ginContext.JSON(http.StatusOK, map[string]string{healthStatusKey: healthStatusOK})
}

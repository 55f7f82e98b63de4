package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/f-sync/followcheck/internal/export"
	"github.com/f-sync/followcheck/internal/relationships"
	"github.com/f-sync/followcheck/internal/report"
	"github.com/f-sync/followcheck/internal/session"
	"github.com/f-sync/followcheck/internal/views"
)

const (
	archiveFormField                = "archive"
	listParameter                   = "list"
	handleParameter                 = "handle"
	searchQueryParameter            = "q"
	sortQueryParameter              = "sort"
	formatQueryParameter            = "format"
	sampleMutualParameter           = "mutual"
	sampleFollowingOnlyParameter    = "followingOnly"
	samplePendingParameter          = "pending"
	sampleFollowerOnlyParameter     = "followerOnly"
	sampleFollowingOnlyPrefix       = "celebrity_"
	ignoredExportListName           = "ignored"
	contentDispositionHeader        = "Content-Disposition"
	attachmentDispositionFormat     = `attachment; filename="%s"`
	errorMessageIngestionInProgress = "another archive is being processed; try again when it finishes"
	errorMessageUploadTooLarge      = "uploaded archive exceeds the size limit"
	errorMessageMissingArchive      = "the request must include an archive file field"
	errorMessageUploadUnreadable    = "the uploaded archive could not be read"
	errorMessageNoSnapshot          = "no relationship data loaded"
	errorMessageStoreFailure        = "relationship data could not be saved"
	errorMessageRenderFailure       = "report rendering failed"
	errorMessageExportFailure       = "export failed"
	errorMessageInvalidSampleCount  = "sample counts must be non-negative integers"
	logMessageIngestionRejected     = "ingestion rejected"
	logMessageIngestionSucceeded    = "ingestion completed"
	logMessageIngestionBusy         = "ingestion refused while another is running"
	logMessageStoreFailure          = "snapshot store failure"
	logMessageRenderFailure         = "report render failure"
	logMessageExportFailure         = "export write failure"
	logFieldIngestionID             = "ingestion_id"
	logFieldSource                  = "source"
	logFieldFileName                = "file_name"
	logFieldErrorKind               = "error_kind"
	logFieldElapsed                 = "elapsed"
)

var errInvalidSampleCount = errors.New(errorMessageInvalidSampleCount)

type apiHandler struct {
	session        *session.Manager
	metrics        *Metrics
	logger         *zap.Logger
	maxUploadBytes int64
	clock          func() time.Time
	newIdentifier  func() string
}

type errorResponse struct {
	Error       string `json:"error"`
	Kind        string `json:"kind,omitempty"`
	IngestionID string `json:"ingestionId,omitempty"`
}

type ingestionResponse struct {
	IngestionID string           `json:"ingestionId"`
	Source      string           `json:"source"`
	FileName    string           `json:"fileName,omitempty"`
	Statistics  views.Statistics `json:"statistics"`
}

type listResponse struct {
	List    views.ListName             `json:"list"`
	Count   int                        `json:"count"`
	Records []relationships.UserRecord `json:"records"`
}

type mutationResponse struct {
	Ignored    []string         `json:"ignored"`
	Statistics views.Statistics `json:"statistics"`
}

func (handler apiHandler) uploadArchive(ginContext *gin.Context) {
	release, err := handler.session.BeginIngestion()
	if err != nil {
		handler.logger.Warn(logMessageIngestionBusy, zap.String(logFieldSource, ingestionSourceUpload))
		ginContext.JSON(http.StatusConflict, errorResponse{Error: errorMessageIngestionInProgress})
		return
	}
	defer release()

	if ginContext.Request.ContentLength > handler.maxUploadBytes {
		ginContext.JSON(http.StatusRequestEntityTooLarge, errorResponse{Error: errorMessageUploadTooLarge})
		return
	}
	ginContext.Request.Body = http.MaxBytesReader(ginContext.Writer, ginContext.Request.Body, handler.maxUploadBytes)

	fileHeader, err := ginContext.FormFile(archiveFormField)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			ginContext.JSON(http.StatusRequestEntityTooLarge, errorResponse{Error: errorMessageUploadTooLarge})
			return
		}
		ginContext.JSON(http.StatusBadRequest, errorResponse{Error: errorMessageMissingArchive})
		return
	}
	payload, err := readUpload(fileHeader)
	if err != nil {
		ginContext.JSON(http.StatusBadRequest, errorResponse{Error: errorMessageUploadUnreadable})
		return
	}

	ingestionID := handler.newIdentifier()
	started := time.Now()
	snapshot, err := relationships.IngestArchive(payload)
	if err != nil {
		kind, _ := relationships.KindOf(err)
		outcome := string(kind)
		if outcome == "" {
			outcome = outcomeRejected
		}
		handler.metrics.observeIngestion(ingestionSourceUpload, outcome, time.Since(started))
		handler.logger.Warn(logMessageIngestionRejected,
			zap.String(logFieldIngestionID, ingestionID),
			zap.String(logFieldFileName, fileHeader.Filename),
			zap.String(logFieldErrorKind, string(kind)),
			zap.Error(err),
		)
		ginContext.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: string(kind), IngestionID: ingestionID})
		return
	}
	handler.storeIngestion(ginContext, ingestionResponse{
		IngestionID: ingestionID,
		Source:      ingestionSourceUpload,
		FileName:    fileHeader.Filename,
	}, snapshot, started)
}

func (handler apiHandler) generateSample(ginContext *gin.Context) {
	sampleConfig, err := sampleConfigFromQuery(ginContext)
	if err != nil {
		ginContext.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	release, err := handler.session.BeginIngestion()
	if err != nil {
		handler.logger.Warn(logMessageIngestionBusy, zap.String(logFieldSource, ingestionSourceSample))
		ginContext.JSON(http.StatusConflict, errorResponse{Error: errorMessageIngestionInProgress})
		return
	}
	defer release()

	sampleConfig.Now = handler.clock
	started := time.Now()
	snapshot, err := relationships.GenerateSample(sampleConfig)
	if err != nil {
		handler.metrics.observeIngestion(ingestionSourceSample, outcomeRejected, time.Since(started))
		ginContext.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	handler.storeIngestion(ginContext, ingestionResponse{
		IngestionID: handler.newIdentifier(),
		Source:      ingestionSourceSample,
	}, snapshot, started)
}

func (handler apiHandler) storeIngestion(ginContext *gin.Context, response ingestionResponse, snapshot relationships.Snapshot, started time.Time) {
	if err := handler.session.Replace(ginContext.Request.Context(), snapshot); err != nil {
		handler.metrics.observeIngestion(response.Source, outcomeStoreFailure, time.Since(started))
		handler.logger.Error(logMessageStoreFailure, zap.String(logFieldIngestionID, response.IngestionID), zap.Error(err))
		ginContext.JSON(http.StatusInternalServerError, errorResponse{Error: errorMessageStoreFailure, IngestionID: response.IngestionID})
		return
	}
	elapsed := time.Since(started)
	handler.metrics.observeIngestion(response.Source, outcomeSuccess, elapsed)
	handler.metrics.observeSnapshot(snapshot, true)
	handler.logger.Info(logMessageIngestionSucceeded,
		zap.String(logFieldIngestionID, response.IngestionID),
		zap.String(logFieldSource, response.Source),
		zap.Duration(logFieldElapsed, elapsed),
	)
	response.Statistics = views.Summarize(snapshot)
	ginContext.JSON(http.StatusOK, response)
}

func (handler apiHandler) serveSnapshot(ginContext *gin.Context) {
	snapshot, loaded := handler.requireSnapshot(ginContext)
	if !loaded {
		return
	}
	ginContext.JSON(http.StatusOK, snapshot.Document())
}

func (handler apiHandler) clearSnapshot(ginContext *gin.Context) {
	if err := handler.session.Clear(ginContext.Request.Context()); err != nil {
		handler.logger.Error(logMessageStoreFailure, zap.Error(err))
		ginContext.JSON(http.StatusInternalServerError, errorResponse{Error: errorMessageStoreFailure})
		return
	}
	handler.metrics.observeSnapshot(relationships.Snapshot{}, false)
	ginContext.Status(http.StatusNoContent)
}

func (handler apiHandler) serveStatistics(ginContext *gin.Context) {
	snapshot, loaded := handler.requireSnapshot(ginContext)
	if !loaded {
		return
	}
	ginContext.JSON(http.StatusOK, views.Summarize(snapshot))
}

func (handler apiHandler) serveList(ginContext *gin.Context) {
	listName, records, ok := handler.queryList(ginContext)
	if !ok {
		return
	}
	ginContext.JSON(http.StatusOK, listResponse{List: listName, Count: len(records), Records: records})
}

func (handler apiHandler) exportList(ginContext *gin.Context) {
	format, err := export.ParseFormat(ginContext.Query(formatQueryParameter))
	if err != nil {
		ginContext.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	listName, records, ok := handler.queryList(ginContext)
	if !ok {
		return
	}

	var buffer bytes.Buffer
	if err := export.Write(&buffer, format, records); err != nil {
		handler.logger.Error(logMessageExportFailure, zap.Error(err))
		ginContext.JSON(http.StatusInternalServerError, errorResponse{Error: errorMessageExportFailure})
		return
	}
	handler.sendAttachment(ginContext, export.FileName(string(listName), format, handler.clock()), format.ContentType(), buffer.Bytes())
}

func (handler apiHandler) exportIgnored(ginContext *gin.Context) {
	snapshot, loaded := handler.requireSnapshot(ginContext)
	if !loaded {
		return
	}
	var buffer bytes.Buffer
	if err := export.WriteIgnored(&buffer, snapshot.IgnoredList()); err != nil {
		handler.logger.Error(logMessageExportFailure, zap.Error(err))
		ginContext.JSON(http.StatusInternalServerError, errorResponse{Error: errorMessageExportFailure})
		return
	}
	fileName := export.FileName(ignoredExportListName, export.FormatJSON, handler.clock())
	handler.sendAttachment(ginContext, fileName, export.FormatJSON.ContentType(), buffer.Bytes())
}

func (handler apiHandler) importIgnored(ginContext *gin.Context) {
	handles, err := export.ReadIgnored(ginContext.Request.Body)
	if err != nil {
		ginContext.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	handler.mutate(ginContext, func(snapshot relationships.Snapshot) (relationships.Snapshot, error) {
		return session.ImportIgnored(snapshot, handles), nil
	})
}

func (handler apiHandler) clearIgnored(ginContext *gin.Context) {
	handler.mutate(ginContext, func(snapshot relationships.Snapshot) (relationships.Snapshot, error) {
		return session.ClearIgnored(snapshot), nil
	})
}

func (handler apiHandler) addIgnored(ginContext *gin.Context) {
	handle := handleFromPath(ginContext)
	handler.mutate(ginContext, func(snapshot relationships.Snapshot) (relationships.Snapshot, error) {
		return session.AddIgnored(snapshot, handle)
	})
}

func (handler apiHandler) removeIgnored(ginContext *gin.Context) {
	handle := handleFromPath(ginContext)
	handler.mutate(ginContext, func(snapshot relationships.Snapshot) (relationships.Snapshot, error) {
		return session.RemoveIgnored(snapshot, handle), nil
	})
}

func (handler apiHandler) removeNotFollowingBack(ginContext *gin.Context) {
	handle := handleFromPath(ginContext)
	handler.mutate(ginContext, func(snapshot relationships.Snapshot) (relationships.Snapshot, error) {
		return session.RemoveNotFollowingBack(snapshot, handle), nil
	})
}

func (handler apiHandler) removePending(ginContext *gin.Context) {
	handle := handleFromPath(ginContext)
	handler.mutate(ginContext, func(snapshot relationships.Snapshot) (relationships.Snapshot, error) {
		return session.RemovePending(snapshot, handle), nil
	})
}

// handleFromPath trims the handle path parameter so every ignore and trim route matches the same key.
func handleFromPath(ginContext *gin.Context) string {
	return strings.TrimSpace(ginContext.Param(handleParameter))
}

func (handler apiHandler) serveReport(ginContext *gin.Context) {
	snapshot, loaded := handler.session.Current()
	if !loaded {
		ginContext.String(http.StatusNotFound, errorMessageNoSnapshot)
		return
	}
	pageHTML, err := report.Render(snapshot, handler.clock())
	if err != nil {
		handler.logger.Error(logMessageRenderFailure, zap.Error(err))
		ginContext.String(http.StatusInternalServerError, errorMessageRenderFailure)
		return
	}
	ginContext.Data(http.StatusOK, htmlContentType, []byte(pageHTML))
}

func (handler apiHandler) mutate(ginContext *gin.Context, operation func(relationships.Snapshot) (relationships.Snapshot, error)) {
	updated, err := handler.session.Update(ginContext.Request.Context(), operation)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrNoSnapshot):
		ginContext.JSON(http.StatusNotFound, errorResponse{Error: errorMessageNoSnapshot})
		return
	case errors.Is(err, session.ErrEmptyHandle):
		ginContext.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	default:
		handler.logger.Error(logMessageStoreFailure, zap.Error(err))
		ginContext.JSON(http.StatusInternalServerError, errorResponse{Error: errorMessageStoreFailure})
		return
	}
	handler.metrics.observeSnapshot(updated, true)
	ginContext.JSON(http.StatusOK, mutationResponse{Ignored: updated.IgnoredList(), Statistics: views.Summarize(updated)})
}

func (handler apiHandler) requireSnapshot(ginContext *gin.Context) (relationships.Snapshot, bool) {
	snapshot, loaded := handler.session.Current()
	if !loaded {
		ginContext.JSON(http.StatusNotFound, errorResponse{Error: errorMessageNoSnapshot})
	}
	return snapshot, loaded
}

// queryList resolves the list named in the path and applies the q and sort query parameters.
func (handler apiHandler) queryList(ginContext *gin.Context) (views.ListName, []relationships.UserRecord, bool) {
	listName, err := views.ParseListName(ginContext.Param(listParameter))
	if err != nil {
		ginContext.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
		return "", nil, false
	}
	sortMode, err := views.ParseSortMode(ginContext.Query(sortQueryParameter))
	if err != nil {
		ginContext.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return "", nil, false
	}
	snapshot, loaded := handler.requireSnapshot(ginContext)
	if !loaded {
		return "", nil, false
	}
	records, err := views.List(snapshot, listName)
	if err != nil {
		ginContext.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
		return "", nil, false
	}
	return listName, views.Apply(records, views.Query{Search: ginContext.Query(searchQueryParameter), Sort: sortMode}), true
}

func (handler apiHandler) sendAttachment(ginContext *gin.Context, fileName string, contentType string, payload []byte) {
	ginContext.Header(contentDispositionHeader, fmt.Sprintf(attachmentDispositionFormat, fileName))
	ginContext.Data(http.StatusOK, contentType, payload)
}

func readUpload(fileHeader *multipart.FileHeader) ([]byte, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

func sampleConfigFromQuery(ginContext *gin.Context) (relationships.SampleConfig, error) {
	sampleConfig := relationships.DefaultSampleConfig()
	overrides := []struct {
		parameter string
		target    *int
	}{
		{parameter: sampleFollowerOnlyParameter, target: &sampleConfig.FollowerOnlyCount},
		{parameter: sampleMutualParameter, target: &sampleConfig.MutualCount},
		{parameter: samplePendingParameter, target: &sampleConfig.PendingCount},
	}
	for _, override := range overrides {
		value, present, err := sampleCount(ginContext, override.parameter)
		if err != nil {
			return relationships.SampleConfig{}, err
		}
		if present {
			*override.target = value
		}
	}

	followingOnly, present, err := sampleCount(ginContext, sampleFollowingOnlyParameter)
	if err != nil {
		return relationships.SampleConfig{}, err
	}
	if present {
		sampleConfig.FollowingOnlyGroups = []relationships.SampleGroup{{Prefix: sampleFollowingOnlyPrefix, Count: followingOnly}}
	}
	return sampleConfig, nil
}

func sampleCount(ginContext *gin.Context, parameter string) (int, bool, error) {
	rawValue, present := ginContext.GetQuery(parameter)
	if !present {
		return 0, false, nil
	}
	value, err := strconv.Atoi(rawValue)
	if err != nil || value < 0 {
		return 0, false, fmt.Errorf("%w: %s", errInvalidSampleCount, parameter)
	}
	return value, true, nil
}

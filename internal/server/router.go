// Package server exposes the inspection run workflow over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/tenkenlab/tenken/backend/internal/annotate"
	"github.com/tenkenlab/tenken/backend/internal/annotate/raster"
	"github.com/tenkenlab/tenken/backend/internal/checklist"
	"github.com/tenkenlab/tenken/backend/internal/draft"
	"github.com/tenkenlab/tenken/backend/internal/report"
	"github.com/tenkenlab/tenken/backend/internal/run"
	"go.uber.org/zap"
)

const inspectorIDContextKey = "tenken_inspector_id"

var (
	errMissingSessionIssuer = errors.New("session issuer dependency required")
	errMissingRunService    = errors.New("run service dependency required")
	errInvalidAuthorization = errors.New("authorization header missing or invalid")
)

// SessionIssuer issues and validates inspector session tokens.
type SessionIssuer interface {
	IssueSession(ctx context.Context, inspectorID string) (string, int64, error)
	ValidateSession(token string) (string, error)
}

// Dependencies wires the HTTP layer's collaborators.
type Dependencies struct {
	SessionIssuer SessionIssuer
	RunService    *run.Service
	JPEGQuality   int
	Logger        *zap.Logger
}

// NewHTTPHandler builds the router. All run routes require a bearer
// session token.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.SessionIssuer == nil {
		return nil, errMissingSessionIssuer
	}
	if deps.RunService == nil {
		return nil, errMissingRunService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	quality := deps.JPEGQuality
	if quality <= 0 || quality > 100 {
		quality = raster.DefaultJPEGQuality
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		sessions:    deps.SessionIssuer,
		runs:        deps.RunService,
		jpegQuality: quality,
		logger:      logger,
	}

	router.POST("/auth/session", handler.handleIssueSession)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.PUT("/sites/selection", handler.handleSelectSite)
	protected.GET("/sites/selection", handler.handleResolveSite)

	runs := protected.Group("/runs/:org/:bu/:brand/:site")
	runs.GET("", handler.handleStartRun)
	runs.POST("/items/state", handler.handleSetState)
	runs.POST("/items/note", handler.handleSetNote)
	runs.POST("/items/hold-note", handler.handleSetHoldNote)
	runs.POST("/photos", handler.handleAddPhotos)
	runs.DELETE("/photos/:photoID", handler.handleRemovePhoto)
	runs.POST("/submit", handler.handleSubmit)
	runs.POST("/discard", handler.handleDiscard)
	runs.GET("/report", handler.handleReport)

	return router, nil
}

type httpHandler struct {
	sessions    SessionIssuer
	runs        *run.Service
	jpegQuality int
	logger      *zap.Logger
}

func keyFromPath(c *gin.Context) draft.Key {
	return draft.Key{
		Organization: c.Param("org"),
		BusinessUnit: c.Param("bu"),
		Brand:        c.Param("brand"),
		Site:         c.Param("site"),
	}
}

type sessionRequestPayload struct {
	InspectorID string `json:"inspector_id"`
}

type sessionResponsePayload struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func (h *httpHandler) handleIssueSession(c *gin.Context) {
	var request sessionRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.InspectorID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	token, expiresIn, err := h.sessions.IssueSession(c.Request.Context(), request.InspectorID)
	if err != nil {
		h.logger.Error("failed to issue session token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session_issue_failed"})
		return
	}

	c.JSON(http.StatusOK, sessionResponsePayload{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
	})
}

type runResponsePayload struct {
	Draft       checklist.Draft `json:"draft"`
	SubmittedAt string          `json:"submitted_at,omitempty"`
}

func (h *httpHandler) handleStartRun(c *gin.Context) {
	key := keyFromPath(c)

	doc, err := h.runs.StartRun(c.Request.Context(), key)
	if err != nil {
		h.respondServiceError(c, "start run failed", err)
		return
	}

	response := runResponsePayload{Draft: doc}
	if at, ok, err := h.runs.SubmittedAt(c.Request.Context(), key); err == nil && ok {
		response.SubmittedAt = at.Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, response)
}

type stateRequestPayload struct {
	SectionID string `json:"section_id"`
	ItemID    string `json:"item_id"`
	State     string `json:"state"`
}

func (h *httpHandler) handleSetState(c *gin.Context) {
	var request stateRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	state, err := checklist.ParseItemState(request.State)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_state"})
		return
	}

	doc, err := h.runs.SetItemState(c.Request.Context(), keyFromPath(c), request.SectionID, request.ItemID, state)
	if err != nil {
		h.respondServiceError(c, "set state failed", err)
		return
	}
	c.JSON(http.StatusOK, runResponsePayload{Draft: doc})
}

type noteRequestPayload struct {
	SectionID string `json:"section_id"`
	ItemID    string `json:"item_id"`
	Note      string `json:"note"`
}

func (h *httpHandler) handleSetNote(c *gin.Context) {
	var request noteRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	doc, err := h.runs.SetItemNote(c.Request.Context(), keyFromPath(c), request.SectionID, request.ItemID, request.Note)
	if err != nil {
		h.respondServiceError(c, "set note failed", err)
		return
	}
	c.JSON(http.StatusOK, runResponsePayload{Draft: doc})
}

func (h *httpHandler) handleSetHoldNote(c *gin.Context) {
	var request noteRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	doc, err := h.runs.SetItemHoldNote(c.Request.Context(), keyFromPath(c), request.SectionID, request.ItemID, request.Note)
	if err != nil {
		h.respondServiceError(c, "set hold note failed", err)
		return
	}
	c.JSON(http.StatusOK, runResponsePayload{Draft: doc})
}

type addPhotosResponsePayload struct {
	Added int             `json:"added"`
	Draft checklist.Draft `json:"draft"`
}

// handleAddPhotos accepts a multipart form: files under "photos", the
// target item in "section_id"/"item_id", and an optional "shapes" field
// holding a JSON object of filename to annotation shapes. Shapes are
// burned into the file at its intrinsic resolution before the photo is
// stored.
func (h *httpHandler) handleAddPhotos(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	sectionID := c.PostForm("section_id")
	itemID := c.PostForm("item_id")
	files := form.File["photos"]
	if sectionID == "" || itemID == "" || len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	shapesByFile := map[string][]annotate.Shape{}
	if raw := c.PostForm("shapes"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &shapesByFile); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_shapes"})
			return
		}
	}

	inputs := make([]run.PhotoInput, 0, len(files))
	for _, file := range files {
		reader, err := file.Open()
		if err != nil {
			h.logger.Warn("photo upload open failed", zap.String("file", file.Filename), zap.Error(err))
			continue
		}
		defer reader.Close()

		if shapes := shapesByFile[file.Filename]; len(shapes) > 0 {
			payload, readErr := io.ReadAll(reader)
			if readErr != nil {
				h.logger.Warn("photo upload read failed", zap.String("file", file.Filename), zap.Error(readErr))
				continue
			}
			annotated, exportErr := raster.ExportPayload(payload, shapes, h.jpegQuality)
			if exportErr != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "annotation_failed"})
				return
			}
			inputs = append(inputs, run.PhotoInput{Name: file.Filename, Reader: bytes.NewReader(annotated)})
			continue
		}
		inputs = append(inputs, run.PhotoInput{Name: file.Filename, Reader: reader})
	}

	added, doc, err := h.runs.AddPhotos(c.Request.Context(), keyFromPath(c), sectionID, itemID, inputs)
	if err != nil {
		h.respondServiceError(c, "add photos failed", err)
		return
	}
	c.JSON(http.StatusOK, addPhotosResponsePayload{Added: added, Draft: doc})
}

type removePhotoRequestPayload struct {
	SectionID string `json:"section_id"`
	ItemID    string `json:"item_id"`
}

func (h *httpHandler) handleRemovePhoto(c *gin.Context) {
	var request removePhotoRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	doc, err := h.runs.RemovePhoto(c.Request.Context(), keyFromPath(c), request.SectionID, request.ItemID, c.Param("photoID"))
	if err != nil {
		h.respondServiceError(c, "remove photo failed", err)
		return
	}
	c.JSON(http.StatusOK, runResponsePayload{Draft: doc})
}

type submitRequestPayload struct {
	Decision string    `json:"decision"`
	Flow     *run.Flow `json:"flow"`
}

// handleSubmit drives the submission flow one step. An empty decision
// begins the flow; a decision plus the previously returned flow advances
// it. Reaching the submitting state commits immediately, so the response
// flow is always a resting state.
func (h *httpHandler) handleSubmit(c *gin.Context) {
	var request submitRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	key := keyFromPath(c)

	if strings.TrimSpace(request.Decision) == "" {
		flow, err := h.runs.BeginSubmit(c.Request.Context(), key)
		if err != nil {
			h.respondServiceError(c, "begin submit failed", err)
			return
		}
		c.JSON(http.StatusOK, flow)
		return
	}

	if request.Flow == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_flow"})
		return
	}
	flow, err := h.runs.AdvanceSubmit(c.Request.Context(), key, *request.Flow, run.Decision(request.Decision))
	if err != nil {
		if errors.Is(err, run.ErrInvalidDecision) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_decision"})
			return
		}
		h.respondServiceError(c, "advance submit failed", err)
		return
	}
	c.JSON(http.StatusOK, flow)
}

func (h *httpHandler) handleDiscard(c *gin.Context) {
	doc, err := h.runs.Discard(c.Request.Context(), keyFromPath(c))
	if err != nil {
		h.respondServiceError(c, "discard failed", err)
		return
	}
	c.JSON(http.StatusOK, runResponsePayload{Draft: doc})
}

// handleReport renders the PDF summary. Only submitted runs have one.
func (h *httpHandler) handleReport(c *gin.Context) {
	key := keyFromPath(c)

	submittedAt, ok, err := h.runs.SubmittedAt(c.Request.Context(), key)
	if err != nil {
		h.respondServiceError(c, "report lookup failed", err)
		return
	}
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "not_submitted"})
		return
	}

	doc, err := h.runs.StartRun(c.Request.Context(), key)
	if err != nil {
		h.respondServiceError(c, "report load failed", err)
		return
	}

	selection, found, err := h.runs.ResolveSite(c.Request.Context())
	if err != nil || !found || selection.Key() != key {
		selection = draft.SiteSelection{
			Organization: key.Organization,
			BusinessUnit: key.BusinessUnit,
			Brand:        key.Brand,
			SiteID:       key.Site,
		}
	}

	payload, err := report.Generate(report.RunSummary{
		Selection:   selection,
		Draft:       doc,
		SubmittedAt: submittedAt,
		Inspector:   c.GetString(inspectorIDContextKey),
	})
	if err != nil {
		h.logger.Error("report generation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "report_failed"})
		return
	}
	c.Data(http.StatusOK, "application/pdf", payload)
}

type selectSiteRequestPayload struct {
	Organization string `json:"organization"`
	BusinessUnit string `json:"business_unit"`
	Brand        string `json:"brand"`
	SiteID       string `json:"site_id"`
	SiteLabel    string `json:"site_label"`
	BrandLabel   string `json:"brand_label"`
}

func (h *httpHandler) handleSelectSite(c *gin.Context) {
	var request selectSiteRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.SiteID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	selection := draft.SiteSelection{
		Organization: request.Organization,
		BusinessUnit: request.BusinessUnit,
		Brand:        request.Brand,
		SiteID:       request.SiteID,
		SiteLabel:    request.SiteLabel,
		BrandLabel:   request.BrandLabel,
	}
	if err := h.runs.SelectSite(c.Request.Context(), selection); err != nil {
		h.respondServiceError(c, "select site failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": selection.Key().String()})
}

func (h *httpHandler) handleResolveSite(c *gin.Context) {
	selection, ok, err := h.runs.ResolveSite(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, "resolve site failed", err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no_selection"})
		return
	}
	c.JSON(http.StatusOK, selection)
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	subject, err := h.sessions.ValidateSession(token)
	if err != nil {
		h.logger.Warn("session validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(inspectorIDContextKey, subject)
	c.Next()
}

// respondServiceError maps service failures onto HTTP statuses: unknown
// targets become 404, bad input 400, everything else 500.
func (h *httpHandler) respondServiceError(c *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, checklist.ErrItemNotFound), errors.Is(err, checklist.ErrPhotoNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, checklist.ErrUnknownState):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_state"})
	default:
		h.logger.Error(message, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}

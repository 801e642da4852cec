// Package api exposes the gateway's HTTP surface: viewing sessions, the
// dashboard and per-book viewer views, and one endpoint per flow action.
package api

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"bookmind-gateway/internal/client"
	"bookmind-gateway/internal/flow"
	"bookmind-gateway/internal/models"
	"bookmind-gateway/internal/render"
	"bookmind-gateway/internal/session"
	"bookmind-gateway/pkg/logger"
)

// genericFailure is shown when a backend failure carries no detail message.
const genericFailure = "Something went wrong. Please try again."

// BackendClient is everything the handlers need from the API client.
type BackendClient interface {
	flow.Backend
	Genres(ctx context.Context) ([]string, error)
	FileInfo(ctx context.Context, fileID string) (*models.FileInfo, error)
	DeleteFile(ctx context.Context, fileID string) error
	Health(ctx context.Context) (*models.BackendHealth, error)
}

// Handler wires HTTP routes to the session store and the backend client.
type Handler struct {
	backend  BackendClient
	sessions *session.Store
}

// NewHandler constructs a Handler instance.
func NewHandler(backend BackendClient, sessions *session.Store) *Handler {
	return &Handler{backend: backend, sessions: sessions}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.health)

	ui := router.Group("/ui")
	ui.POST("/sessions", h.createSession)
	ui.GET("/genres", h.genres)

	s := ui.Group("/sessions/:session_id")
	s.GET("", h.getSession)
	s.DELETE("", h.endSession)
	s.PUT("/theme", h.setTheme)
	s.GET("/dashboard", h.dashboardView)
	s.POST("/upload", h.uploadBook)
	s.POST("/recommend", h.recommend)
	s.DELETE("/recommend", h.clearRecommendations)
	s.GET("/books/:file_id", h.bookView)
	s.DELETE("/books/:file_id", h.deleteBook)
	s.GET("/books/:file_id/summary", h.getSummary)
	s.POST("/books/:file_id/summary", h.generateSummary)
	s.GET("/books/:file_id/summary/clipboard", h.copySummary)
	s.GET("/books/:file_id/chat", h.getTranscript)
	s.POST("/books/:file_id/chat", h.sendChatMessage)
}

// liveSession resolves the :session_id path param, replying 404 on miss.
func (h *Handler) liveSession(c *gin.Context) (*session.Session, bool) {
	s, err := h.sessions.Get(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, false
	}
	return s, true
}

// knownBook resolves the :file_id route state. A file id the session has
// never seen is checked against the backend once; if the backend does not
// know it either, the viewer is sent back to the dashboard.
func (h *Handler) knownBook(c *gin.Context, s *session.Session) (fileID, displayName string, ok bool) {
	fileID = c.Param("file_id")
	name, known := s.BookName(fileID)
	if known {
		return fileID, name, true
	}
	if _, err := h.backend.FileInfo(c.Request.Context(), fileID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "book not found", "redirect": "/"})
		return "", "", false
	}
	// Valid upstream but the route state was lost (e.g. a refresh); keep the
	// placeholder display name rather than inventing one.
	s.RememberBook(fileID, "")
	name, _ = s.BookName(fileID)
	return fileID, name, true
}

func (h *Handler) createSession(c *gin.Context) {
	s := h.sessions.Create()
	c.JSON(http.StatusCreated, gin.H{
		"session_id": s.ID,
		"theme":      s.Theme(),
	})
}

func (h *Handler) getSession(c *gin.Context) {
	s, ok := h.liveSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": s.ID,
		"theme":      s.Theme(),
		"books":      s.Books(),
		"created_at": s.CreatedAt,
	})
}

func (h *Handler) endSession(c *gin.Context) {
	h.sessions.Delete(c.Param("session_id"))
	c.Status(http.StatusNoContent)
}

func (h *Handler) setTheme(c *gin.Context) {
	s, ok := h.liveSession(c)
	if !ok {
		return
	}
	var req struct {
		Theme string `json:"theme"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if !s.SetTheme(req.Theme) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "theme must be light or dark"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"theme": s.Theme()})
}

func (h *Handler) dashboardView(c *gin.Context) {
	s, ok := h.liveSession(c)
	if !ok {
		return
	}
	view := gin.H{
		"theme":     s.Theme(),
		"upload":    s.UploadFlow().Snapshot(),
		"recommend": s.RecommendFlow().Snapshot(),
	}
	// Genre chips are decoration; the dashboard still renders without them.
	genres, err := h.backend.Genres(c.Request.Context())
	if err != nil {
		logger.Warnf("fetch genres: %v", err)
		genres = []string{}
	}
	view["genres"] = genres
	c.JSON(http.StatusOK, view)
}

func (h *Handler) genres(c *gin.Context) {
	genres, err := h.backend.Genres(c.Request.Context())
	if err != nil {
		h.backendFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"genres": genres})
}

func (h *Handler) uploadBook(c *gin.Context) {
	s, ok := h.liveSession(c)
	if !ok {
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	head, err := sniffHead(fileHeader)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "open file failed"})
		return
	}
	content, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "open file failed"})
		return
	}
	defer content.Close()

	filename := filepath.Base(fileHeader.Filename)
	uploaded, err := s.UploadFlow().Submit(c.Request.Context(), h.backend, filename, fileHeader.Size, head, content)
	if err != nil {
		h.flowFailure(c, err)
		return
	}

	s.RememberBook(uploaded.FileID, uploaded.Filename)
	c.JSON(http.StatusCreated, gin.H{
		"file_id":         uploaded.FileID,
		"filename":        uploaded.Filename,
		"file_size":       uploaded.FileSize,
		"content_preview": uploaded.ContentPreview,
		"route":           "/book/" + uploaded.FileID,
		"display_name":    uploaded.Filename,
	})
}

func (h *Handler) bookView(c *gin.Context) {
	s, ok := h.liveSession(c)
	if !ok {
		return
	}
	fileID, displayName, ok := h.knownBook(c, s)
	if !ok {
		return
	}
	info, err := h.backend.FileInfo(c.Request.Context(), fileID)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			s.ForgetBook(fileID)
			c.JSON(http.StatusNotFound, gin.H{"error": "book not found", "redirect": "/"})
			return
		}
		h.backendFailure(c, err)
		return
	}
	chat := s.ChatFlow(fileID)
	c.JSON(http.StatusOK, gin.H{
		"file_id":      fileID,
		"display_name": displayName,
		"route":        "/book/" + fileID,
		"theme":        s.Theme(),
		"info":         info,
		"summary":      s.SummaryFlow(fileID).Snapshot(),
		"chat": gin.H{
			"transcript": chat.Transcript(),
			"in_flight":  chat.InFlight(),
		},
	})
}

func (h *Handler) deleteBook(c *gin.Context) {
	s, ok := h.liveSession(c)
	if !ok {
		return
	}
	fileID, _, ok := h.knownBook(c, s)
	if !ok {
		return
	}
	if err := h.backend.DeleteFile(c.Request.Context(), fileID); err != nil {
		var apiErr *client.APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
			h.backendFailure(c, err)
			return
		}
		// Already gone upstream; still drop the local state.
	}
	s.ForgetBook(fileID)
	c.Status(http.StatusNoContent)
}

func (h *Handler) generateSummary(c *gin.Context) {
	s, ok := h.liveSession(c)
	if !ok {
		return
	}
	fileID, _, ok := h.knownBook(c, s)
	if !ok {
		return
	}
	result, err := s.SummaryFlow(fileID).Generate(c.Request.Context(), h.backend)
	if err != nil {
		h.flowFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       flow.SummaryLoaded,
		"result":       result,
		"summary_html": render.ToHTML(result.Summary),
	})
}

func (h *Handler) getSummary(c *gin.Context) {
	s, ok := h.liveSession(c)
	if !ok {
		return
	}
	fileID, _, ok := h.knownBook(c, s)
	if !ok {
		return
	}
	snap := s.SummaryFlow(fileID).Snapshot()
	view := gin.H{"status": snap.Status}
	if snap.Result != nil {
		view["result"] = snap.Result
		view["summary_html"] = render.ToHTML(snap.Result.Summary)
	}
	if snap.Error != "" {
		view["error"] = snap.Error
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) copySummary(c *gin.Context) {
	s, ok := h.liveSession(c)
	if !ok {
		return
	}
	fileID, _, ok := h.knownBook(c, s)
	if !ok {
		return
	}
	snap := s.SummaryFlow(fileID).Snapshot()
	if snap.Result == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no summary to copy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"clipboard": flow.Clipboard(*snap.Result)})
}

func (h *Handler) sendChatMessage(c *gin.Context) {
	s, ok := h.liveSession(c)
	if !ok {
		return
	}
	fileID, _, ok := h.knownBook(c, s)
	if !ok {
		return
	}
	var req struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	chat := s.ChatFlow(fileID)
	reply, err := chat.Send(c.Request.Context(), h.backend, req.Message)
	if err != nil {
		if _, isValidation := flow.AsValidation(err); isValidation || errors.Is(err, flow.ErrBusy) {
			h.flowFailure(c, err)
			return
		}
		// Backend failure: the transcript already gained the fallback reply,
		// so the conversation continues; just log the cause.
		logger.Warnf("chat turn failed for %s: %v", fileID, err)
	}
	c.JSON(http.StatusOK, gin.H{
		"reply": gin.H{
			"role":         reply.Role,
			"content":      reply.Content,
			"content_html": render.ToHTML(reply.Content),
		},
		"transcript": chat.Transcript(),
	})
}

func (h *Handler) getTranscript(c *gin.Context) {
	s, ok := h.liveSession(c)
	if !ok {
		return
	}
	fileID, _, ok := h.knownBook(c, s)
	if !ok {
		return
	}
	chat := s.ChatFlow(fileID)
	c.JSON(http.StatusOK, gin.H{
		"transcript": chat.Transcript(),
		"in_flight":  chat.InFlight(),
	})
}

func (h *Handler) recommend(c *gin.Context) {
	s, ok := h.liveSession(c)
	if !ok {
		return
	}
	var req struct {
		Interests     string `json:"interests"`
		BasedOnFileID string `json:"based_on_file_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.BasedOnFileID != "" {
		if _, known := s.BookName(req.BasedOnFileID); !known {
			c.JSON(http.StatusNotFound, gin.H{"error": "book not found", "redirect": "/"})
			return
		}
	}
	results, err := s.RecommendFlow().Search(c.Request.Context(), h.backend, req.Interests, req.BasedOnFileID)
	if err != nil {
		h.flowFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"recommendations":    results,
		"based_on_interests": req.Interests,
	})
}

func (h *Handler) clearRecommendations(c *gin.Context) {
	s, ok := h.liveSession(c)
	if !ok {
		return
	}
	s.RecommendFlow().Clear()
	c.Status(http.StatusNoContent)
}

func (h *Handler) health(c *gin.Context) {
	view := gin.H{"status": "ok"}
	backend, err := h.backend.Health(c.Request.Context())
	if err != nil {
		view["backend"] = gin.H{"status": "unreachable"}
	} else {
		view["backend"] = backend
	}
	c.JSON(http.StatusOK, view)
}

// flowFailure maps flow errors to responses: local validation → 400 with the
// exact user-facing message, busy → 409 (the control stays disabled), and
// anything else is a backend failure.
func (h *Handler) flowFailure(c *gin.Context, err error) {
	if ve, ok := flow.AsValidation(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Message})
		return
	}
	if errors.Is(err, flow.ErrBusy) {
		c.JSON(http.StatusConflict, gin.H{"error": flow.ErrBusy.Error()})
		return
	}
	h.backendFailure(c, err)
}

// backendFailure surfaces a backend error: the backend's own detail message
// when it sent one, a generic line otherwise. Nothing is retried.
func (h *Handler) backendFailure(c *gin.Context, err error) {
	message := genericFailure
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		message = apiErr.Detail
	}
	logger.Errorf("backend request failed: %v", err)
	c.JSON(http.StatusBadGateway, gin.H{"error": message})
}

// sniffHead reads up to 512 bytes for content-type detection without
// consuming the reader later used for the forwarded upload.
func sniffHead(fileHeader *multipart.FileHeader) ([]byte, error) {
	f, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}

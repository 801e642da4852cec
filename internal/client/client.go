// Package client wraps the BookMind backend HTTP API. One method per backend
// capability; every method shares a single timeout and surfaces the backend's
// error detail unchanged. No call is retried.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"bookmind-gateway/internal/models"
)

// APIError reports a non-2xx backend response. Detail carries the backend's
// own message when the payload included one.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("backend returned status %d", e.StatusCode)
}

// Client talks to the BookMind backend API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a client for the backend at baseURL. The timeout is the shared
// ceiling for every request, upload included.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Upload sends the file as a multipart form and returns the stored reference.
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader) (*models.UploadedFile, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("copy file content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", body)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var out models.UploadedFile
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Summarize requests a fresh summary for an uploaded file.
func (c *Client) Summarize(ctx context.Context, fileID string) (*models.Summary, error) {
	var out models.Summary
	err := c.postJSON(ctx, "/api/summarize", map[string]string{"file_id": fileID}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Chat sends one turn together with the bounded history and returns the
// assistant's reply text.
func (c *Client) Chat(ctx context.Context, fileID, message string, history []models.Message) (string, error) {
	payload := map[string]interface{}{
		"file_id":      fileID,
		"message":      message,
		"chat_history": history,
	}
	var out struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/api/chat", payload, &out); err != nil {
		return "", err
	}
	return out.Response, nil
}

// Recommend asks for suggestions matching the interests text. basedOnFileID
// may be empty; when set the backend also considers that book's content.
func (c *Client) Recommend(ctx context.Context, interests, basedOnFileID string) ([]models.Recommendation, error) {
	payload := map[string]interface{}{"interests": interests}
	if basedOnFileID != "" {
		payload["based_on_file_id"] = basedOnFileID
	}
	var out struct {
		Recommendations []models.Recommendation `json:"recommendations"`
	}
	if err := c.postJSON(ctx, "/api/recommend", payload, &out); err != nil {
		return nil, err
	}
	return out.Recommendations, nil
}

// Genres fetches the backend's list of popular genres.
func (c *Client) Genres(ctx context.Context) ([]string, error) {
	var out struct {
		Genres []string `json:"genres"`
	}
	if err := c.getJSON(ctx, "/api/recommend/genres", &out); err != nil {
		return nil, err
	}
	return out.Genres, nil
}

// FileInfo fetches metadata for an uploaded file.
func (c *Client) FileInfo(ctx context.Context, fileID string) (*models.FileInfo, error) {
	var out models.FileInfo
	if err := c.getJSON(ctx, "/api/files/"+fileID, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteFile removes an uploaded file and its derived data from the backend.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/files/"+fileID, nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}
	return c.do(req, nil)
}

// Health checks backend liveness.
func (c *Client) Health(ctx context.Context) (*models.BackendHealth, error) {
	var out models.BackendHealth
	if err := c.getJSON(ctx, "/api/health", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out interface{}) error {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call backend: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read backend response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Detail: errorDetail(data)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode backend response: %w", err)
	}
	return nil
}

// errorDetail pulls the human-readable message out of a backend error body.
// FastAPI reports HTTP errors as {"detail": "..."}; the structured error
// model uses {"error": "...", "detail": "..."}.
func errorDetail(data []byte) string {
	var payload struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	if payload.Detail != "" {
		return payload.Detail
	}
	return payload.Error
}

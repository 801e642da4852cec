package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bookmind-gateway/internal/models"
)

func TestUploadSendsMultipart(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/upload" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		defer file.Close()
		if header.Filename != "book.pdf" {
			t.Errorf("filename %q", header.Filename)
		}
		content, _ := io.ReadAll(file)
		if string(content) != "%PDF-1.4 fake" {
			t.Errorf("content %q", content)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":         true,
			"file_id":         "abc123",
			"filename":        "book.pdf",
			"file_size":       13,
			"content_preview": "preview",
		})
	}))
	defer backend.Close()

	c := New(backend.URL, time.Second)
	uploaded, err := c.Upload(context.Background(), "book.pdf", strings.NewReader("%PDF-1.4 fake"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if uploaded.FileID != "abc123" || uploaded.Filename != "book.pdf" || uploaded.FileSize != 13 {
		t.Fatalf("unexpected result: %#v", uploaded)
	}
}

func TestChatSendsHistory(t *testing.T) {
	var got struct {
		FileID      string           `json:"file_id"`
		Message     string           `json:"message"`
		ChatHistory []models.Message `json:"chat_history"`
	}
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"response": "the answer"})
	}))
	defer backend.Close()

	history := []models.Message{
		{Role: models.RoleUser, Content: "q1"},
		{Role: models.RoleAssistant, Content: "a1"},
		{Role: models.RoleUser, Content: "q2"},
	}
	c := New(backend.URL, time.Second)
	reply, err := c.Chat(context.Background(), "abc123", "q2", history)
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if reply != "the answer" {
		t.Fatalf("reply %q", reply)
	}
	if got.FileID != "abc123" || got.Message != "q2" {
		t.Fatalf("request fields: %#v", got)
	}
	if len(got.ChatHistory) != 3 || got.ChatHistory[0].Content != "q1" {
		t.Fatalf("history not passed through in order: %#v", got.ChatHistory)
	}
}

func TestRecommendOmitsEmptyFileID(t *testing.T) {
	var payload map[string]interface{}
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&payload)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"recommendations": []models.Recommendation{{Title: "Dune", Author: "Frank Herbert"}},
		})
	}))
	defer backend.Close()

	c := New(backend.URL, time.Second)
	recs, err := c.Recommend(context.Background(), "sci-fi", "")
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if len(recs) != 1 || recs[0].Title != "Dune" {
		t.Fatalf("unexpected recs: %#v", recs)
	}
	if _, present := payload["based_on_file_id"]; present {
		t.Fatalf("empty file id must be omitted: %#v", payload)
	}

	if _, err := c.Recommend(context.Background(), "sci-fi", "abc123"); err != nil {
		t.Fatalf("scoped recommend: %v", err)
	}
	if payload["based_on_file_id"] != "abc123" {
		t.Fatalf("file id not sent: %#v", payload)
	}
}

func TestErrorDetailSurfaced(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"detail": "File too large. Maximum size: 10.0MB"})
	}))
	defer backend.Close()

	c := New(backend.URL, time.Second)
	_, err := c.Summarize(context.Background(), "abc123")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d", apiErr.StatusCode)
	}
	if apiErr.Detail != "File too large. Maximum size: 10.0MB" {
		t.Fatalf("detail %q", apiErr.Detail)
	}
}

func TestErrorWithoutDetailGetsGenericMessage(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>upstream melted</html>"))
	}))
	defer backend.Close()

	c := New(backend.URL, time.Second)
	_, err := c.Genres(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Detail != "" {
		t.Fatalf("non-JSON body must not leak into detail: %q", apiErr.Detail)
	}
	if !strings.Contains(apiErr.Error(), "502") {
		t.Fatalf("error text should carry the status: %q", apiErr.Error())
	}
}

func TestTimeoutSurfacesAsError(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer backend.Close()

	c := New(backend.URL, 20*time.Millisecond)
	if _, err := c.Health(context.Background()); err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestSimpleGets(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/recommend/genres":
			json.NewEncoder(w).Encode(map[string]interface{}{"genres": []string{"Science Fiction", "Fantasy"}})
		case "/api/files/abc123":
			json.NewEncoder(w).Encode(models.FileInfo{FileID: "abc123", Filename: "book.pdf"})
		case "/api/health":
			json.NewEncoder(w).Encode(models.BackendHealth{Status: "healthy", Environment: "test"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer backend.Close()

	c := New(backend.URL, time.Second)

	genres, err := c.Genres(context.Background())
	if err != nil || len(genres) != 2 {
		t.Fatalf("genres: %v %v", genres, err)
	}
	info, err := c.FileInfo(context.Background(), "abc123")
	if err != nil || info.Filename != "book.pdf" {
		t.Fatalf("file info: %#v %v", info, err)
	}
	health, err := c.Health(context.Background())
	if err != nil || health.Status != "healthy" {
		t.Fatalf("health: %#v %v", health, err)
	}
}

func TestDeleteFile(t *testing.T) {
	var gotMethod, gotPath string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "message": "File deleted successfully"})
	}))
	defer backend.Close()

	c := New(backend.URL, time.Second)
	if err := c.DeleteFile(context.Background(), "abc123"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/api/files/abc123" {
		t.Fatalf("unexpected request: %s %s", gotMethod, gotPath)
	}
}

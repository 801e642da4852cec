package flow

import (
	"context"
	"strings"
	"sync"

	"bookmind-gateway/internal/models"
)

// Recommend collects free-text interests, optionally scoped to an uploaded
// book, and holds the latest result list. A new search replaces the list
// wholesale; Clear returns the flow to its pre-submission state.
type Recommend struct {
	mu        sync.Mutex
	inFlight  bool
	interests string
	basedOn   string
	results   []models.Recommendation
	lastErr   string
}

func NewRecommend() *Recommend {
	return &Recommend{}
}

// RecommendSnapshot is the flow state the dashboard and viewer render.
type RecommendSnapshot struct {
	Searching bool                    `json:"searching"`
	Interests string                  `json:"interests,omitempty"`
	BasedOn   string                  `json:"based_on_file_id,omitempty"`
	Results   []models.Recommendation `json:"results,omitempty"`
	Error     string                  `json:"error,omitempty"`
}

// Search issues one recommendation request. Empty or whitespace-only
// interests are rejected locally without contacting the backend.
func (r *Recommend) Search(ctx context.Context, backend Backend, interests, basedOnFileID string) ([]models.Recommendation, error) {
	if strings.TrimSpace(interests) == "" {
		return nil, &ValidationError{Message: "Please enter your interests"}
	}

	r.mu.Lock()
	if r.inFlight {
		r.mu.Unlock()
		return nil, ErrBusy
	}
	r.inFlight = true
	r.mu.Unlock()

	results, err := backend.Recommend(ctx, interests, basedOnFileID)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.inFlight = false
	if err != nil {
		r.lastErr = err.Error()
		return nil, err
	}
	r.interests = interests
	r.basedOn = basedOnFileID
	r.results = results
	r.lastErr = ""
	return results, nil
}

// Clear wipes the result list and the remembered interests text ("new
// search" in the UI).
func (r *Recommend) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.interests = ""
	r.basedOn = ""
	r.results = nil
	r.lastErr = ""
}

// Snapshot returns the current flow state.
func (r *Recommend) Snapshot() RecommendSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RecommendSnapshot{
		Searching: r.inFlight,
		Interests: r.interests,
		BasedOn:   r.basedOn,
		Results:   r.results,
		Error:     r.lastErr,
	}
}

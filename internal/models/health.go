package models

// BackendHealth is the backend liveness payload.
type BackendHealth struct {
	Status      string `json:"status"`
	Environment string `json:"environment"`
}

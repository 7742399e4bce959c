package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"intellab-testing/internal/domain"

	vegeta "github.com/tsenart/vegeta/v12/lib"
)

// SubmissionPath is the judging endpoint hit on every iteration.
const SubmissionPath = "/problem/problem-submissions"

// SubmissionTargets builds attack targets for the judging endpoint.
type SubmissionTargets struct {
	url string
}

// NewSubmissionTargets creates a target builder for the API at baseURL.
func NewSubmissionTargets(baseURL string) *SubmissionTargets {
	return &SubmissionTargets{url: strings.TrimRight(baseURL, "/") + SubmissionPath}
}

// URL returns the full submission URL.
func (s *SubmissionTargets) URL() string {
	return s.url
}

// Fill writes a submission request authorised by token into tgt.
func (s *SubmissionTargets) Fill(tgt *vegeta.Target, token string, sub domain.Submission) error {
	body, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("encode submission: %w", err)
	}

	tgt.Method = http.MethodPost
	tgt.URL = s.url
	tgt.Body = body
	tgt.Header = http.Header{
		"Content-Type":  []string{"application/json"},
		"Authorization": []string{"Bearer " + token},
	}
	return nil
}

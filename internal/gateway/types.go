package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	healthPath          = "/health"
	livenessPath        = "/health/live"
	readinessPath       = "/health/ready"
	apiV1CasesPath      = "/api/v1/cases"
	apiV1EvidencePath   = "/api/v1/evidence"
	apiV1AgentChatPath  = "/api/v1/agent/chat"
	apiV1KnowledgePath  = "/api/v1/knowledge/search"
	HeaderUserID        = "X-User-ID"
	HeaderRequestID     = "X-Request-ID"
	StatusHealthy       = "healthy"
	StatusUnhealthy     = "unhealthy"
	EvidenceTypeLog     = "log"
	SearchModeKeyword   = "keyword"
	evidenceFormField   = "file"
	defaultUserAgent    = "faultmaven-smoke"
	maxResponseBodySize = 1 << 20
)

// HealthResponse is the body of GET /health and GET /health/live.
// Version is informational and kept raw: gateways send it as a string or a
// number.
type HealthResponse struct {
	Status  string          `json:"status"`
	Version json.RawMessage `json:"version,omitempty"`
	Ready   bool            `json:"ready"`
}

// VersionString renders Version, or returns "" when it is missing or null.
func (r HealthResponse) VersionString() string {
	if isNullJSON(r.Version) {
		return ""
	}
	var s string
	if err := json.Unmarshal(r.Version, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(r.Version))
}

type Component struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// ReadinessResponse is the body of GET /health/ready. It is returned for both
// 200 and 503 answers.
type ReadinessResponse struct {
	StatusCode int         `json:"-"`
	Status     string      `json:"status"`
	Ready      bool        `json:"ready"`
	Components []Component `json:"components"`
}

// ComponentsWithStatus returns, in response order, the names of the
// components reporting status. Duplicate names are reported once.
func (r ReadinessResponse) ComponentsWithStatus(status string) []string {
	seen := make(map[string]bool, len(r.Components))
	names := []string{}
	for _, c := range r.Components {
		if c.Status != status || seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		names = append(names, c.Name)
	}
	return names
}

type CreateCaseRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	UserID      string `json:"user_id"`
}

type CreateCaseResponse struct {
	CaseID string `json:"case_id"`
}

// EvidenceUpload describes a multipart POST /api/v1/evidence.
type EvidenceUpload struct {
	CaseID       string
	EvidenceType string
	Description  string
	UserID       string
	FileName     string
	ContentType  string
	Content      []byte
}

type EvidenceResponse struct {
	EvidenceID string `json:"evidence_id"`
	Filename   string `json:"filename"`
}

type ChatRequest struct {
	Message string `json:"message"`
}

// ChatReplyFields lists, by priority, the fields an agent backend may put its
// answer in.
var ChatReplyFields = []string{"response", "message", "content"}

// ChatResponse keeps the raw agent answer since backends disagree on its shape.
type ChatResponse map[string]json.RawMessage

// Reply returns the first field of ChatReplyFields holding a non-empty value.
func (r ChatResponse) Reply() (field string, value string, ok bool) {
	for _, f := range ChatReplyFields {
		raw, found := r[f]
		if !found {
			continue
		}
		if v, nonEmpty := nonEmptyJSON(raw); nonEmpty {
			return f, v, true
		}
	}
	return "", "", false
}

type KnowledgeSearchRequest struct {
	Query      string `json:"query"`
	SearchMode string `json:"search_mode"`
	Limit      int    `json:"limit"`
}

// KnowledgeSearchResponse keeps results raw so that any shape of the field
// counts as present.
type KnowledgeSearchResponse struct {
	Results json.RawMessage `json:"results"`
}

// HasResults reports whether the results field is present and not null.
func (r KnowledgeSearchResponse) HasResults() bool {
	return !isNullJSON(r.Results)
}

// Count returns the number of entries of an array, the number of keys of an
// object or the length of a string. Other values count as 0.
func (r KnowledgeSearchResponse) Count() int {
	if !r.HasResults() {
		return 0
	}
	var v any
	if err := json.Unmarshal(r.Results, &v); err != nil {
		return 0
	}
	switch t := v.(type) {
	case []any:
		return len(t)
	case map[string]any:
		return len(t)
	case string:
		return len([]rune(t))
	default:
		return 0
	}
}

func isNullJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// nonEmptyJSON reports whether raw holds a value other than null, false, 0,
// an empty string, an empty array or an empty object.
func nonEmptyJSON(raw json.RawMessage) (string, bool) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, t != ""
	case bool:
		return fmt.Sprint(t), t
	case float64:
		return fmt.Sprint(t), t != 0
	case []any:
		return string(raw), len(t) > 0
	case map[string]any:
		return string(raw), len(t) > 0
	default:
		return string(raw), true
	}
}

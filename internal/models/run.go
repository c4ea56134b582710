package models

import "time"

// PhaseKey identifies a smoke check on the command line (--skip).
type PhaseKey string

const (
	PhaseHealth    PhaseKey = "health"
	PhaseLiveness  PhaseKey = "liveness"
	PhaseReadiness PhaseKey = "readiness"
	PhaseCase      PhaseKey = "case"
	PhaseEvidence  PhaseKey = "evidence"
	PhaseAgent     PhaseKey = "agent"
	PhaseKnowledge PhaseKey = "knowledge"
)

// PhaseKeys lists every check in execution order.
var PhaseKeys = []PhaseKey{
	PhaseHealth,
	PhaseLiveness,
	PhaseReadiness,
	PhaseCase,
	PhaseEvidence,
	PhaseAgent,
	PhaseKnowledge,
}

func ParsePhaseKey(s string) (PhaseKey, bool) {
	for _, k := range PhaseKeys {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// RunContext is the scratch state of one smoke run. Identifiers produced by
// earlier phases are consumed by later ones.
type RunContext struct {
	APIURL       string
	Timeout      time.Duration
	AgentTimeout time.Duration
	RunID        string
	UserID       string
	StartedAt    time.Time

	CaseID     string
	EvidenceID string
}

func (rc *RunContext) HasCase() bool {
	return rc.CaseID != ""
}

package smoke

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/faultmaven/faultmaven-smoke/internal/gateway"
	"github.com/faultmaven/faultmaven-smoke/internal/models"
)

const (
	NameBasicHealth     = "Basic health check"
	NameLiveness        = "Liveness probe"
	NameReadiness       = "Readiness probe"
	NameCreateCase      = "Create case"
	NameUploadEvidence  = "Upload evidence"
	NameAgentQuery      = "AI agent query"
	NameKnowledgeSearch = "Knowledge search"

	caseTitle           = "Smoke Test Case"
	evidenceFileName    = "smoke_test.log"
	evidenceDescription = "Smoke test evidence file"
	agentPrompt         = "What does the error log indicate? Summarize the issue."
	knowledgeQuery      = "database connection error"
	knowledgeLimit      = 5
	evidenceBodyPreview = 100
	skipNoCase          = "no case_id"
)

// evidenceLog is the synthetic log uploaded as evidence.
var evidenceLog = []byte(`2025-12-10 10:00:00 ERROR Application failed to start
2025-12-10 10:00:01 ERROR Connection refused: database unreachable
2025-12-10 10:00:02 WARN  Retrying connection (attempt 1/3)
2025-12-10 10:00:05 ERROR Connection timeout after 3 seconds
2025-12-10 10:00:06 ERROR Service startup aborted
`)

// Gateway is the part of the gateway client the checks use.
type Gateway interface {
	Health(ctx context.Context) (*gateway.HealthResponse, error)
	Liveness(ctx context.Context) (*gateway.HealthResponse, error)
	Readiness(ctx context.Context) (*gateway.ReadinessResponse, error)
	CreateCase(ctx context.Context, req gateway.CreateCaseRequest) (*gateway.CreateCaseResponse, error)
	UploadEvidence(ctx context.Context, upload gateway.EvidenceUpload) (*gateway.EvidenceResponse, error)
	AgentChat(ctx context.Context, caseID string, req gateway.ChatRequest) (gateway.ChatResponse, error)
	KnowledgeSearch(ctx context.Context, req gateway.KnowledgeSearchRequest) (*gateway.KnowledgeSearchResponse, error)
}

// checkFn runs one check. It never fails: every error becomes a failed result.
type checkFn func(ctx context.Context, gw Gateway, rc *models.RunContext) models.TestResult

type phase struct {
	key   models.PhaseKey
	name  string
	group string
	run   checkFn
}

// phases lists the checks in the order they must run. Later checks depend on
// identifiers stored in the run context by earlier ones.
var phases = []phase{
	{key: models.PhaseHealth, name: NameBasicHealth, group: "Phase 1: Health Checks", run: checkBasicHealth},
	{key: models.PhaseLiveness, name: NameLiveness, group: "Phase 1: Health Checks", run: checkLiveness},
	{key: models.PhaseReadiness, name: NameReadiness, group: "Phase 1: Health Checks", run: checkReadiness},
	{key: models.PhaseCase, name: NameCreateCase, group: "Phase 2: Case Management", run: checkCreateCase},
	{key: models.PhaseEvidence, name: NameUploadEvidence, group: "Phase 3: Evidence Upload", run: checkUploadEvidence},
	{key: models.PhaseAgent, name: NameAgentQuery, group: "Phase 4: AI Agent", run: checkAgentQuery},
	{key: models.PhaseKnowledge, name: NameKnowledgeSearch, group: "Phase 5: Knowledge Base", run: checkKnowledgeSearch},
}

func checkBasicHealth(ctx context.Context, gw Gateway, _ *models.RunContext) models.TestResult {
	resp, err := gw.Health(ctx)
	if err != nil {
		return models.NewFailedResult(NameBasicHealth, err.Error())
	}
	if resp.Status != gateway.StatusHealthy {
		return models.NewFailedResult(NameBasicHealth, "Unexpected status: "+orNone(resp.Status))
	}
	version := resp.VersionString()
	if version == "" {
		version = "unknown"
	}
	return models.NewPassedResult(NameBasicHealth, "Gateway v"+version)
}

func checkLiveness(ctx context.Context, gw Gateway, _ *models.RunContext) models.TestResult {
	resp, err := gw.Liveness(ctx)
	if err != nil {
		return models.NewFailedResult(NameLiveness, err.Error())
	}
	if resp.Status != gateway.StatusHealthy || !resp.Ready {
		return models.NewFailedResult(NameLiveness, "Status: "+orNone(resp.Status))
	}
	return models.NewPassedResult(NameLiveness, "Process alive")
}

// checkReadiness passes on ready == true whatever the component statuses are,
// so a degraded but ready stack passes.
func checkReadiness(ctx context.Context, gw Gateway, _ *models.RunContext) models.TestResult {
	resp, err := gw.Readiness(ctx)
	if err != nil {
		return models.NewFailedResult(NameReadiness, err.Error())
	}
	if !resp.Ready {
		failed := resp.ComponentsWithStatus(gateway.StatusUnhealthy)
		return models.NewFailedResult(NameReadiness, "Not ready: "+strings.Join(failed, ", "))
	}
	status := strings.ToUpper(resp.Status)
	if status == "" {
		status = "UNKNOWN"
	}
	return models.NewPassedResult(NameReadiness, fmt.Sprintf("%s - %d components checked", status, len(resp.Components)))
}

func checkCreateCase(ctx context.Context, gw Gateway, rc *models.RunContext) models.TestResult {
	req := gateway.CreateCaseRequest{
		Title:       caseTitle,
		Description: fmt.Sprintf("E2E test case created at %s (run %s)", time.Now().Format(time.RFC3339), rc.RunID),
		UserID:      rc.UserID,
	}
	resp, err := gw.CreateCase(ctx, req)
	if err != nil {
		return models.NewFailedResult(NameCreateCase, err.Error())
	}
	if resp.CaseID == "" {
		return models.NewFailedResult(NameCreateCase, "No case_id in response")
	}
	rc.CaseID = resp.CaseID
	return models.NewPassedResult(NameCreateCase, "ID: "+resp.CaseID)
}

func checkUploadEvidence(ctx context.Context, gw Gateway, rc *models.RunContext) models.TestResult {
	if !rc.HasCase() {
		return models.NewSkippedResult(NameUploadEvidence, skipNoCase)
	}

	resp, err := gw.UploadEvidence(ctx, gateway.EvidenceUpload{
		CaseID:       rc.CaseID,
		EvidenceType: gateway.EvidenceTypeLog,
		Description:  evidenceDescription,
		UserID:       rc.UserID,
		FileName:     evidenceFileName,
		ContentType:  "text/plain",
		Content:      evidenceLog,
	})
	if err != nil {
		if se, ok := gateway.IsStatusError(err); ok {
			return models.NewFailedResult(NameUploadEvidence, fmt.Sprintf("%s: %s", se.Error(), se.BodyPrefix(evidenceBodyPreview)))
		}
		return models.NewFailedResult(NameUploadEvidence, err.Error())
	}
	if resp.EvidenceID == "" {
		return models.NewFailedResult(NameUploadEvidence, "No evidence_id in response")
	}
	rc.EvidenceID = resp.EvidenceID

	filename := resp.Filename
	if filename == "" {
		filename = "unknown"
	}
	return models.NewPassedResult(NameUploadEvidence, "File: "+filename)
}

func checkAgentQuery(ctx context.Context, gw Gateway, rc *models.RunContext) models.TestResult {
	if !rc.HasCase() {
		return models.NewSkippedResult(NameAgentQuery, skipNoCase)
	}

	resp, err := gw.AgentChat(ctx, rc.CaseID, gateway.ChatRequest{Message: agentPrompt})
	if err != nil {
		if gateway.IsTimeout(err) {
			return models.NewFailedResult(NameAgentQuery, "Request timeout (LLM may be slow)")
		}
		return models.NewFailedResult(NameAgentQuery, err.Error())
	}
	if _, _, ok := resp.Reply(); !ok {
		return models.NewFailedResult(NameAgentQuery, "Empty response from agent")
	}
	return models.NewPassedResult(NameAgentQuery, "Response received")
}

// checkKnowledgeSearch passes on an empty result list: a fresh install has
// nothing indexed yet.
func checkKnowledgeSearch(ctx context.Context, gw Gateway, _ *models.RunContext) models.TestResult {
	resp, err := gw.KnowledgeSearch(ctx, gateway.KnowledgeSearchRequest{
		Query:      knowledgeQuery,
		SearchMode: gateway.SearchModeKeyword,
		Limit:      knowledgeLimit,
	})
	if err != nil {
		return models.NewFailedResult(NameKnowledgeSearch, err.Error())
	}
	if !resp.HasResults() {
		return models.NewFailedResult(NameKnowledgeSearch, "No 'results' field in response")
	}
	return models.NewPassedResult(NameKnowledgeSearch, fmt.Sprintf("%d result(s)", resp.Count()))
}

func orNone(s string) string {
	if s == "" {
		return "<none>"
	}
	return s
}

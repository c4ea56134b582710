// Package smoke implements the end-to-end smoke test of a FaultMaven stack.
//
// The Runner drives seven checks through the public gateway, strictly in
// order:
//
//	Phase 1: Health Checks     GET  /health, /health/live, /health/ready
//	Phase 2: Case Management   POST /api/v1/cases
//	Phase 3: Evidence Upload   POST /api/v1/evidence (multipart)
//	Phase 4: AI Agent          POST /api/v1/agent/chat/{case_id}
//	Phase 5: Knowledge Base    POST /api/v1/knowledge/search
//
// Each check returns exactly one models.TestResult; transport, timeout,
// status and decoding errors are turned into failed results and never stop
// the run. The case id stored by "Create case" gates evidence upload and the
// agent query: without it both record a skipped failure and send nothing.
//
// Results are handed to a report.Reporter, which prints them as they arrive
// and renders the summary once every check ran.
//
// Only two conditions end a run early: cancellation of the context passed to
// Run (SIGINT/SIGTERM in the command) and a panic inside a check. Both make
// Run return false.
//
// # Usage Example
//
//	client := gateway.NewClient(cfg.Gateway.BaseURL(),
//	    gateway.WithTimeout(cfg.Gateway.RequestTimeout()),
//	    gateway.WithAgentTimeout(cfg.Gateway.AgentRequestTimeout()),
//	)
//	reporter := report.NewReporter(os.Stdout)
//	rc := &models.RunContext{APIURL: client.BaseURL(), UserID: "smoke_test_user", RunID: uuid.NewString()}
//
//	if !smoke.NewRunner(client, reporter, rc).Run(ctx) {
//	    os.Exit(1)
//	}
package smoke

package smoke_test

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/faultmaven/faultmaven-smoke/internal/gateway"
	"github.com/faultmaven/faultmaven-smoke/internal/gateway/gatewaytest"
	"github.com/faultmaven/faultmaven-smoke/internal/models"
	"github.com/faultmaven/faultmaven-smoke/internal/report"
	"github.com/faultmaven/faultmaven-smoke/internal/smoke"
)

var allChecks = []string{
	smoke.NameBasicHealth,
	smoke.NameLiveness,
	smoke.NameReadiness,
	smoke.NameCreateCase,
	smoke.NameUploadEvidence,
	smoke.NameAgentQuery,
	smoke.NameKnowledgeSearch,
}

func names(results []models.TestResult) []string {
	n := make([]string, 0, len(results))
	for _, r := range results {
		n = append(n, r.Name)
	}
	return n
}

func resultOf(results []models.TestResult, name string) models.TestResult {
	for _, r := range results {
		if r.Name == name {
			return r
		}
	}
	Fail("no result named " + name)
	return models.TestResult{}
}

var _ = Describe("Runner", func() {
	var (
		ctx    context.Context
		fake   *gatewaytest.Gateway
		client *gateway.Client
		out    *bytes.Buffer
		rc     *models.RunContext
	)

	newRunner := func(opts ...smoke.RunnerOption) *smoke.Runner {
		return smoke.NewRunner(client, report.NewReporter(out), rc, opts...)
	}

	BeforeEach(func() {
		ctx = context.Background()
		fake = gatewaytest.New()
		client = gateway.NewClient(fake.URL(), gateway.WithTimeout(2*time.Second), gateway.WithAgentTimeout(2*time.Second))
		out = &bytes.Buffer{}
		rc = &models.RunContext{
			APIURL: fake.URL(),
			RunID:  "run-1",
			UserID: "smoke_test_user",
		}
	})

	AfterEach(func() {
		fake.Close()
	})

	Context("healthy stack", func() {
		// Given a gateway where every service answers as expected
		// When we run the smoke test
		// Then every check should pass, in order, exactly once
		It("should pass every check in order", func() {
			runner := newRunner()

			Expect(runner.Run(ctx)).To(BeTrue())

			results := runner.Results()
			Expect(names(results)).To(Equal(allChecks))
			for _, r := range results {
				Expect(r.Passed).To(BeTrue(), r.Name+": "+r.Message)
			}
			Expect(rc.CaseID).To(Equal("case-123"))
			Expect(rc.EvidenceID).To(Equal("ev-456"))

			Expect(resultOf(results, smoke.NameBasicHealth).Message).To(Equal("Gateway v1.4.2"))
			Expect(resultOf(results, smoke.NameLiveness).Message).To(Equal("Process alive"))
			Expect(resultOf(results, smoke.NameReadiness).Message).To(Equal("HEALTHY - 3 components checked"))
			Expect(resultOf(results, smoke.NameCreateCase).Message).To(Equal("ID: case-123"))
			Expect(resultOf(results, smoke.NameUploadEvidence).Message).To(Equal("File: smoke_test.log"))
			Expect(resultOf(results, smoke.NameAgentQuery).Message).To(Equal("Response received"))
			Expect(resultOf(results, smoke.NameKnowledgeSearch).Message).To(Equal("0 result(s)"))

			Expect(out.String()).To(ContainSubstring("Phase 1: Health Checks"))
			Expect(out.String()).To(ContainSubstring("Phase 5: Knowledge Base"))
			Expect(out.String()).To(ContainSubstring("7/7 tests passed"))
		})

		It("should send the documented requests", func() {
			Expect(newRunner().Run(ctx)).To(BeTrue())

			cases := fake.Requests(gatewaytest.RouteCases)
			Expect(cases).To(HaveLen(1))
			Expect(cases[0].JSON).To(HaveKeyWithValue("title", "Smoke Test Case"))
			Expect(cases[0].JSON).To(HaveKeyWithValue("user_id", "smoke_test_user"))
			Expect(cases[0].JSON["description"]).To(ContainSubstring("run-1"))

			evidence := fake.Requests(gatewaytest.RouteEvidence)
			Expect(evidence).To(HaveLen(1))
			Expect(evidence[0].Header.Get("X-User-ID")).To(Equal("smoke_test_user"))
			Expect(evidence[0].Form).To(HaveKeyWithValue("case_id", "case-123"))
			Expect(evidence[0].Form).To(HaveKeyWithValue("evidence_type", "log"))
			Expect(evidence[0].FileName).To(Equal("smoke_test.log"))
			lines := strings.Split(strings.TrimSpace(string(evidence[0].File)), "\n")
			Expect(lines).To(HaveLen(5))
			Expect(lines[0]).To(ContainSubstring("ERROR"))
			Expect(lines[2]).To(ContainSubstring("WARN"))

			chat := fake.Requests(gatewaytest.RouteAgentChat)
			Expect(chat).To(HaveLen(1))
			Expect(chat[0].Params).To(HaveKeyWithValue("case_id", "case-123"))
			Expect(chat[0].JSON).To(HaveKeyWithValue("message", "What does the error log indicate? Summarize the issue."))

			search := fake.Requests(gatewaytest.RouteKnowledge)
			Expect(search).To(HaveLen(1))
			Expect(search[0].JSON).To(HaveKeyWithValue("search_mode", "keyword"))
			Expect(search[0].JSON).To(HaveKeyWithValue("limit", float64(5)))
		})
	})

	Context("health checks", func() {
		It("should fail basic health on an unexpected status", func() {
			fake.Set(gatewaytest.RouteHealth, gatewaytest.Response{Status: http.StatusOK, Body: gin.H{"status": "degraded"}})
			runner := newRunner()

			Expect(runner.Run(ctx)).To(BeFalse())
			r := resultOf(runner.Results(), smoke.NameBasicHealth)
			Expect(r.Passed).To(BeFalse())
			Expect(r.Message).To(Equal("Unexpected status: degraded"))
		})

		DescribeTable("should pass whatever the shape of the version",
			func(raw string, message string) {
				fake.Set(gatewaytest.RouteHealth, gatewaytest.Response{Status: http.StatusOK, Raw: raw})
				runner := newRunner()

				Expect(runner.Run(ctx)).To(BeTrue())
				r := resultOf(runner.Results(), smoke.NameBasicHealth)
				Expect(r.Passed).To(BeTrue(), r.Message)
				Expect(r.Message).To(Equal(message))
			},
			Entry("string", `{"status":"healthy","version":"2.0.1"}`, "Gateway v2.0.1"),
			Entry("number", `{"status":"healthy","version":2}`, "Gateway v2"),
			Entry("decimal", `{"status":"healthy","version":1.5}`, "Gateway v1.5"),
			Entry("null", `{"status":"healthy","version":null}`, "Gateway vunknown"),
			Entry("missing", `{"status":"healthy"}`, "Gateway vunknown"),
		)

		It("should fail basic health on a non 200 answer", func() {
			fake.Set(gatewaytest.RouteHealth, gatewaytest.Response{Status: http.StatusServiceUnavailable, Body: gin.H{"status": "healthy"}})
			runner := newRunner()

			Expect(runner.Run(ctx)).To(BeFalse())
			Expect(resultOf(runner.Results(), smoke.NameBasicHealth).Message).To(Equal("HTTP 503"))
		})

		It("should require both healthy and ready for liveness", func() {
			fake.Set(gatewaytest.RouteLiveness, gatewaytest.Response{Status: http.StatusOK, Body: gin.H{"status": "healthy", "ready": false}})
			runner := newRunner()

			Expect(runner.Run(ctx)).To(BeFalse())
			r := resultOf(runner.Results(), smoke.NameLiveness)
			Expect(r.Passed).To(BeFalse())
			Expect(r.Message).To(Equal("Status: healthy"))
		})

		// Given a stack that is degraded but ready
		// When we check readiness
		// Then it should pass whatever the component statuses are
		It("should pass readiness when ready even with unhealthy components", func() {
			fake.Set(gatewaytest.RouteReadiness, gatewaytest.Response{Status: http.StatusOK, Body: gin.H{
				"status": "degraded",
				"ready":  true,
				"components": []gin.H{
					{"name": "llm", "status": "unhealthy"},
					{"name": "postgres", "status": "healthy"},
				},
			}})
			runner := newRunner()

			Expect(runner.Run(ctx)).To(BeTrue())
			r := resultOf(runner.Results(), smoke.NameReadiness)
			Expect(r.Passed).To(BeTrue())
			Expect(r.Message).To(Equal("DEGRADED - 2 components checked"))
		})

		// Given a stack that is not ready and answers 503
		// When we check readiness
		// Then the message should list exactly the unhealthy components
		It("should list only unhealthy components when not ready", func() {
			fake.Set(gatewaytest.RouteReadiness, gatewaytest.Response{Status: http.StatusServiceUnavailable, Body: gin.H{
				"status": "unhealthy",
				"ready":  false,
				"components": []gin.H{
					{"name": "redis", "status": "unhealthy"},
					{"name": "postgres", "status": "healthy"},
					{"name": "llm", "status": "degraded"},
					{"name": "vector-db", "status": "unhealthy"},
				},
			}})
			runner := newRunner()

			Expect(runner.Run(ctx)).To(BeFalse())
			r := resultOf(runner.Results(), smoke.NameReadiness)
			Expect(r.Passed).To(BeFalse())
			Expect(r.Message).To(Equal("Not ready: redis, vector-db"))
		})

		It("should fail readiness on other status codes", func() {
			fake.Set(gatewaytest.RouteReadiness, gatewaytest.Response{Status: http.StatusInternalServerError, Body: gin.H{}})
			runner := newRunner()

			Expect(runner.Run(ctx)).To(BeFalse())
			Expect(resultOf(runner.Results(), smoke.NameReadiness).Message).To(Equal("HTTP 500"))
		})
	})

	Context("case creation", func() {
		It("should store the case id", func() {
			fake.Set(gatewaytest.RouteCases, gatewaytest.Response{Status: http.StatusCreated, Body: gin.H{"case_id": "abc123"}})
			runner := newRunner()

			Expect(runner.Run(ctx)).To(BeTrue())
			Expect(rc.CaseID).To(Equal("abc123"))
			Expect(resultOf(runner.Results(), smoke.NameCreateCase).Message).To(Equal("ID: abc123"))
			Expect(fake.Requests(gatewaytest.RouteAgentChat)[0].Params).To(HaveKeyWithValue("case_id", "abc123"))
		})

		// Given a gateway that creates the case but returns no id
		// When we run the smoke test
		// Then the dependent checks should be skipped without any request
		It("should skip dependent checks without a case id", func() {
			fake.Set(gatewaytest.RouteCases, gatewaytest.Response{Status: http.StatusCreated, Body: gin.H{}})
			runner := newRunner()

			Expect(runner.Run(ctx)).To(BeFalse())

			results := runner.Results()
			Expect(names(results)).To(Equal(allChecks))

			created := resultOf(results, smoke.NameCreateCase)
			Expect(created.Passed).To(BeFalse())
			Expect(created.Message).To(Equal("No case_id in response"))
			Expect(rc.HasCase()).To(BeFalse())

			for _, name := range []string{smoke.NameUploadEvidence, smoke.NameAgentQuery} {
				r := resultOf(results, name)
				Expect(r.Passed).To(BeFalse())
				Expect(r.Skipped).To(BeTrue())
				Expect(r.Message).To(Equal("Skipped (no case_id)"))
			}
			Expect(fake.Requests(gatewaytest.RouteEvidence)).To(BeEmpty())
			Expect(fake.Requests(gatewaytest.RouteAgentChat)).To(BeEmpty())

			Expect(resultOf(results, smoke.NameKnowledgeSearch).Passed).To(BeTrue())
			Expect(out.String()).To(ContainSubstring("❌ Upload evidence: FAIL - Skipped (no case_id)"))
		})

		It("should fail on a non 201 answer", func() {
			fake.Set(gatewaytest.RouteCases, gatewaytest.Response{Status: http.StatusOK, Body: gin.H{"case_id": "abc123"}})
			runner := newRunner()

			Expect(runner.Run(ctx)).To(BeFalse())
			Expect(resultOf(runner.Results(), smoke.NameCreateCase).Message).To(Equal("HTTP 200"))
			Expect(rc.HasCase()).To(BeFalse())
		})
	})

	Context("evidence upload", func() {
		It("should fail without an evidence id", func() {
			fake.Set(gatewaytest.RouteEvidence, gatewaytest.Response{Status: http.StatusCreated, Body: gin.H{"filename": "smoke_test.log"}})
			runner := newRunner()

			Expect(runner.Run(ctx)).To(BeFalse())
			Expect(resultOf(runner.Results(), smoke.NameUploadEvidence).Message).To(Equal("No evidence_id in response"))
		})

		It("should include the start of the body on unexpected status", func() {
			body := strings.Repeat("x", 150)
			fake.Set(gatewaytest.RouteEvidence, gatewaytest.Response{Status: http.StatusRequestEntityTooLarge, Raw: body})
			runner := newRunner()

			Expect(runner.Run(ctx)).To(BeFalse())
			Expect(resultOf(runner.Results(), smoke.NameUploadEvidence).Message).To(Equal("HTTP 413: " + strings.Repeat("x", 100)))
		})

		It("should report an unknown file name", func() {
			fake.Set(gatewaytest.RouteEvidence, gatewaytest.Response{Status: http.StatusCreated, Body: gin.H{"evidence_id": "ev-1"}})
			runner := newRunner()

			Expect(runner.Run(ctx)).To(BeTrue())
			Expect(resultOf(runner.Results(), smoke.NameUploadEvidence).Message).To(Equal("File: unknown"))
		})
	})

	Context("agent query", func() {
		DescribeTable("should accept any of the answer fields",
			func(body gin.H) {
				fake.Set(gatewaytest.RouteAgentChat, gatewaytest.Response{Status: http.StatusOK, Body: body})
				runner := newRunner()

				Expect(runner.Run(ctx)).To(BeTrue())
				r := resultOf(runner.Results(), smoke.NameAgentQuery)
				Expect(r.Passed).To(BeTrue())
				Expect(r.Message).To(Equal("Response received"))
			},
			Entry("content", gin.H{"content": "x"}),
			Entry("message", gin.H{"message": "x"}),
			Entry("response", gin.H{"response": "x"}),
		)

		It("should fail on an empty answer", func() {
			fake.Set(gatewaytest.RouteAgentChat, gatewaytest.Response{Status: http.StatusOK, Body: gin.H{}})
			runner := newRunner()

			Expect(runner.Run(ctx)).To(BeFalse())
			Expect(resultOf(runner.Results(), smoke.NameAgentQuery).Message).To(Equal("Empty response from agent"))
		})

		// Given an agent slower than the agent timeout
		// When we run the smoke test
		// Then the agent query should fail with the timeout message and the run go on
		It("should report a slow agent as a timeout", func() {
			fake.Set(gatewaytest.RouteAgentChat, gatewaytest.Response{
				Status: http.StatusOK,
				Body:   gin.H{"response": "late"},
				Delay:  2 * time.Second,
			})
			client = gateway.NewClient(fake.URL(), gateway.WithTimeout(2*time.Second), gateway.WithAgentTimeout(100*time.Millisecond))
			runner := newRunner()

			Expect(runner.Run(ctx)).To(BeFalse())
			results := runner.Results()
			Expect(resultOf(results, smoke.NameAgentQuery).Message).To(Equal("Request timeout (LLM may be slow)"))
			Expect(resultOf(results, smoke.NameKnowledgeSearch).Passed).To(BeTrue())
		})

		It("should fail on a non 200 answer", func() {
			fake.Set(gatewaytest.RouteAgentChat, gatewaytest.Response{Status: http.StatusNotFound, Body: gin.H{"detail": "no such case"}})
			runner := newRunner()

			Expect(runner.Run(ctx)).To(BeFalse())
			Expect(resultOf(runner.Results(), smoke.NameAgentQuery).Message).To(Equal("HTTP 404"))
		})
	})

	Context("knowledge search", func() {
		DescribeTable("should count results of any shape",
			func(raw string, message string) {
				fake.Set(gatewaytest.RouteKnowledge, gatewaytest.Response{Status: http.StatusOK, Raw: raw})
				runner := newRunner()

				Expect(runner.Run(ctx)).To(BeTrue())
				r := resultOf(runner.Results(), smoke.NameKnowledgeSearch)
				Expect(r.Passed).To(BeTrue(), r.Message)
				Expect(r.Message).To(Equal(message))
			},
			Entry("empty list", `{"results":[]}`, "0 result(s)"),
			Entry("list", `{"results":[{"id":"kb-1"},{"id":"kb-2"}]}`, "2 result(s)"),
			Entry("object", `{"results":{"items":[]}}`, "1 result(s)"),
			Entry("empty object", `{"results":{}}`, "0 result(s)"),
		)

		DescribeTable("should fail without results",
			func(raw string) {
				fake.Set(gatewaytest.RouteKnowledge, gatewaytest.Response{Status: http.StatusOK, Raw: raw})
				runner := newRunner()

				Expect(runner.Run(ctx)).To(BeFalse())
				r := resultOf(runner.Results(), smoke.NameKnowledgeSearch)
				Expect(r.Passed).To(BeFalse())
				Expect(r.Message).To(Equal("No 'results' field in response"))
			},
			Entry("missing field", `{}`),
			Entry("null field", `{"results":null}`),
		)
	})

	Context("unreachable gateway", func() {
		// Given a gateway that refuses connections
		// When we run the smoke test
		// Then every check should record exactly one failure
		It("should record one failure per check", func() {
			fake.Close()
			runner := newRunner()

			Expect(runner.Run(ctx)).To(BeFalse())

			results := runner.Results()
			Expect(names(results)).To(Equal(allChecks))
			for _, r := range results {
				Expect(r.Passed).To(BeFalse())
				Expect(r.Message).NotTo(BeEmpty())
			}
			Expect(resultOf(results, smoke.NameAgentQuery).Message).To(Equal("Skipped (no case_id)"))
			Expect(out.String()).To(ContainSubstring("0/7 tests passed"))
		})
	})

	Context("skip", func() {
		It("should leave skipped checks out of the results", func() {
			runner := newRunner(smoke.WithSkip(map[models.PhaseKey]bool{
				models.PhaseAgent:     true,
				models.PhaseKnowledge: true,
			}))

			Expect(runner.Run(ctx)).To(BeTrue())
			Expect(names(runner.Results())).To(Equal(allChecks[:5]))
			Expect(fake.Requests(gatewaytest.RouteAgentChat)).To(BeEmpty())
			Expect(out.String()).NotTo(ContainSubstring("Phase 4: AI Agent"))
		})

		It("should still gate dependent checks when case creation is skipped", func() {
			runner := newRunner(smoke.WithSkip(map[models.PhaseKey]bool{models.PhaseCase: true}))

			Expect(runner.Run(ctx)).To(BeFalse())
			Expect(resultOf(runner.Results(), smoke.NameUploadEvidence).Message).To(Equal("Skipped (no case_id)"))
			Expect(fake.Requests(gatewaytest.RouteCases)).To(BeEmpty())
		})
	})

	Context("interruption", func() {
		It("should not run any check on a canceled context", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			runner := newRunner()

			Expect(runner.Run(cctx)).To(BeFalse())
			Expect(runner.Results()).To(BeEmpty())
			Expect(fake.TotalRequests()).To(Equal(0))
			Expect(out.String()).To(ContainSubstring("Test interrupted by user"))
		})

		// Given a run interrupted while the agent is thinking
		// When the context is canceled
		// Then the remaining checks should not run and the run should fail
		It("should abort the remaining checks", func() {
			fake.Set(gatewaytest.RouteAgentChat, gatewaytest.Response{Status: http.StatusOK, Body: gin.H{"response": "x"}, Delay: 2 * time.Second})
			cctx, cancel := context.WithCancel(ctx)
			defer cancel()
			time.AfterFunc(300*time.Millisecond, cancel)
			runner := newRunner()

			Expect(runner.Run(cctx)).To(BeFalse())
			Expect(names(runner.Results())).To(Equal(allChecks[:5]))
			Expect(fake.Requests(gatewaytest.RouteKnowledge)).To(BeEmpty())
			Expect(out.String()).To(ContainSubstring("Test interrupted by user"))
			Expect(out.String()).NotTo(ContainSubstring("Smoke Test Results"))
		})
	})

	Context("unexpected errors", func() {
		It("should abort the run when a check panics", func() {
			runner := smoke.NewRunner(panickingGateway{Gateway: client}, report.NewReporter(out), rc)

			Expect(runner.Run(ctx)).To(BeFalse())
			Expect(names(runner.Results())).To(Equal(allChecks[:3]))
			Expect(out.String()).To(ContainSubstring("Unexpected error"))
			Expect(out.String()).To(ContainSubstring("boom"))
		})
	})
})

// panickingGateway panics on case creation.
type panickingGateway struct {
	smoke.Gateway
}

func (panickingGateway) CreateCase(context.Context, gateway.CreateCaseRequest) (*gateway.CreateCaseResponse, error) {
	panic("boom")
}

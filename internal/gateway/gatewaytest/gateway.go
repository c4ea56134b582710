// Package gatewaytest provides an in-process gateway whose answers can be
// scripted per route. It records every request it receives.
package gatewaytest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Route string

const (
	RouteHealth    Route = "health"
	RouteLiveness  Route = "liveness"
	RouteReadiness Route = "readiness"
	RouteCases     Route = "cases"
	RouteEvidence  Route = "evidence"
	RouteAgentChat Route = "agent_chat"
	RouteKnowledge Route = "knowledge"
)

// Response is what a route answers with. Raw, when set, is sent verbatim
// instead of the JSON encoding of Body.
type Response struct {
	Status int
	Body   any
	Raw    string
	Delay  time.Duration
}

// Request is a request recorded by the gateway.
type Request struct {
	Method   string
	Path     string
	Header   http.Header
	Params   map[string]string
	JSON     map[string]any
	Form     map[string]string
	FileName string
	File     []byte
}

type Gateway struct {
	server    *httptest.Server
	closeOnce sync.Once

	mu        sync.Mutex
	responses map[Route]Response
	requests  map[Route][]Request
}

// DefaultResponses describe a healthy stack.
func DefaultResponses() map[Route]Response {
	return map[Route]Response{
		RouteHealth:   {Status: http.StatusOK, Body: gin.H{"status": "healthy", "version": "1.4.2"}},
		RouteLiveness: {Status: http.StatusOK, Body: gin.H{"status": "healthy", "ready": true}},
		RouteReadiness: {Status: http.StatusOK, Body: gin.H{
			"status": "healthy",
			"ready":  true,
			"components": []gin.H{
				{"name": "case-service", "status": "healthy"},
				{"name": "evidence-service", "status": "healthy"},
				{"name": "agent-service", "status": "healthy"},
			},
		}},
		RouteCases:     {Status: http.StatusCreated, Body: gin.H{"case_id": "case-123"}},
		RouteEvidence:  {Status: http.StatusCreated, Body: gin.H{"evidence_id": "ev-456", "filename": "smoke_test.log"}},
		RouteAgentChat: {Status: http.StatusOK, Body: gin.H{"response": "The database is unreachable."}},
		RouteKnowledge: {Status: http.StatusOK, Body: gin.H{"results": []gin.H{}}},
	}
}

// New starts a gateway answering with DefaultResponses.
func New() *Gateway {
	gin.SetMode(gin.TestMode)

	g := &Gateway{
		responses: DefaultResponses(),
		requests:  map[Route][]Request{},
	}

	logger := zap.L().Named("gatewaytest")
	engine := gin.New()
	// case ids are path-escaped by the client
	engine.UseRawPath = true
	engine.Use(ginzap.Ginzap(logger, time.RFC3339, true), ginzap.RecoveryWithZap(logger, true))

	engine.GET("/health", g.handle(RouteHealth))
	engine.GET("/health/live", g.handle(RouteLiveness))
	engine.GET("/health/ready", g.handle(RouteReadiness))

	v1 := engine.Group("/api/v1")
	v1.POST("/cases", g.handle(RouteCases))
	v1.POST("/evidence", g.handle(RouteEvidence))
	v1.POST("/agent/chat/:case_id", g.handle(RouteAgentChat))
	v1.POST("/knowledge/search", g.handle(RouteKnowledge))

	g.server = httptest.NewServer(engine)
	return g
}

func (g *Gateway) URL() string {
	return g.server.URL
}

func (g *Gateway) Close() {
	g.closeOnce.Do(func() {
		g.server.CloseClientConnections()
		g.server.Close()
	})
}

func (g *Gateway) Set(route Route, resp Response) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.responses[route] = resp
}

func (g *Gateway) Requests(route Route) []Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Request(nil), g.requests[route]...)
}

// TotalRequests counts the requests received on every route.
func (g *Gateway) TotalRequests() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, r := range g.requests {
		n += len(r)
	}
	return n
}

func (g *Gateway) handle(route Route) gin.HandlerFunc {
	return func(c *gin.Context) {
		g.mu.Lock()
		g.requests[route] = append(g.requests[route], record(c))
		resp := g.responses[route]
		g.mu.Unlock()

		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-c.Request.Context().Done():
				return
			}
		}

		if resp.Raw != "" {
			c.Data(resp.Status, "application/json", []byte(resp.Raw))
			return
		}
		c.JSON(resp.Status, resp.Body)
	}
}

func record(c *gin.Context) Request {
	r := Request{
		Method: c.Request.Method,
		Path:   c.Request.URL.Path,
		Header: c.Request.Header.Clone(),
		Params: map[string]string{},
	}
	for _, p := range c.Params {
		r.Params[p.Key] = p.Value
	}

	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		r.Form = map[string]string{}
		if form, err := c.MultipartForm(); err == nil {
			for k, v := range form.Value {
				if len(v) > 0 {
					r.Form[k] = v[0]
				}
			}
		}
		if fh, err := c.FormFile("file"); err == nil {
			r.FileName = fh.Filename
			if f, err := fh.Open(); err == nil {
				r.File, _ = io.ReadAll(f)
				f.Close()
			}
		}
		return r
	}

	if c.Request.Body != nil {
		data, _ := io.ReadAll(c.Request.Body)
		if len(data) > 0 {
			_ = json.Unmarshal(data, &r.JSON)
		}
	}
	return r
}

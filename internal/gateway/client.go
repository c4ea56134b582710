package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"slices"
	"strings"
	"time"

	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"
)

const (
	DefaultTimeout      = 30 * time.Second
	DefaultAgentTimeout = 60 * time.Second
)

// RequestEditorFn is called on every outgoing request before it is sent.
type RequestEditorFn func(ctx context.Context, req *http.Request) error

// Client talks to the gateway fronting the backend services.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	timeout      time.Duration
	agentTimeout time.Duration
	editors      []RequestEditorFn
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the deadline applied to every request but the agent chat.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithAgentTimeout sets the deadline of the agent chat request, which may wait
// on a language model.
func WithAgentTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.agentTimeout = d
	}
}

func WithRequestEditorFn(fn RequestEditorFn) ClientOption {
	return func(c *Client) {
		c.editors = append(c.editors, fn)
	}
}

// WithRequestID tags every request with an X-Request-ID header.
func WithRequestID(id string) ClientOption {
	return WithRequestEditorFn(func(_ context.Context, req *http.Request) error {
		req.Header.Set(HeaderRequestID, id)
		return nil
	})
}

// WithTokenSource adds a bearer token to every request.
func WithTokenSource(ts TokenSource) ClientOption {
	return WithRequestEditorFn(func(_ context.Context, req *http.Request) error {
		token, err := ts.Token()
		if err != nil {
			return fmt.Errorf("failed to get auth token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	})
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{},
		timeout:      DefaultTimeout,
		agentTimeout: DefaultAgentTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if _, err := c.doJSON(ctx, "health", c.timeout, http.MethodGet, healthPath, nil, []int{http.StatusOK}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Liveness calls GET /health/live.
func (c *Client) Liveness(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if _, err := c.doJSON(ctx, "liveness", c.timeout, http.MethodGet, livenessPath, nil, []int{http.StatusOK}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Readiness calls GET /health/ready. A 503 is a valid answer: the body still
// tells which components are not ready.
func (c *Client) Readiness(ctx context.Context) (*ReadinessResponse, error) {
	var resp ReadinessResponse
	code, err := c.doJSON(ctx, "readiness", c.timeout, http.MethodGet, readinessPath, nil,
		[]int{http.StatusOK, http.StatusServiceUnavailable}, &resp)
	if err != nil {
		return nil, err
	}
	resp.StatusCode = code
	return &resp, nil
}

// CreateCase calls POST /api/v1/cases.
func (c *Client) CreateCase(ctx context.Context, req CreateCaseRequest) (*CreateCaseResponse, error) {
	var resp CreateCaseResponse
	if _, err := c.doJSON(ctx, "create case", c.timeout, http.MethodPost, apiV1CasesPath, req, []int{http.StatusCreated}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UploadEvidence sends a multipart POST /api/v1/evidence.
func (c *Client) UploadEvidence(ctx context.Context, upload EvidenceUpload) (*EvidenceResponse, error) {
	body, contentType, err := encodeEvidence(upload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode evidence: %w", err)
	}

	var resp EvidenceResponse
	_, err = c.do(ctx, request{
		op:          "upload evidence",
		timeout:     c.timeout,
		method:      http.MethodPost,
		path:        apiV1EvidencePath,
		body:        body,
		contentType: contentType,
		headers:     map[string]string{HeaderUserID: upload.UserID},
		expected:    []int{http.StatusCreated},
		out:         &resp,
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// AgentChat calls POST /api/v1/agent/chat/{case_id} with the agent timeout.
func (c *Client) AgentChat(ctx context.Context, caseID string, req ChatRequest) (ChatResponse, error) {
	pathParam, err := runtime.StyleParamWithLocation("simple", false, "case_id", runtime.ParamLocationPath, caseID)
	if err != nil {
		return nil, fmt.Errorf("invalid case id %q: %w", caseID, err)
	}

	resp := ChatResponse{}
	if _, err := c.doJSON(ctx, "agent chat", c.agentTimeout, http.MethodPost, apiV1AgentChatPath+"/"+pathParam, req, []int{http.StatusOK}, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// KnowledgeSearch calls POST /api/v1/knowledge/search.
func (c *Client) KnowledgeSearch(ctx context.Context, req KnowledgeSearchRequest) (*KnowledgeSearchResponse, error) {
	var resp KnowledgeSearchResponse
	if _, err := c.doJSON(ctx, "knowledge search", c.timeout, http.MethodPost, apiV1KnowledgePath, req, []int{http.StatusOK}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type request struct {
	op          string
	timeout     time.Duration
	method      string
	path        string
	body        io.Reader
	contentType string
	headers     map[string]string
	expected    []int
	out         any
}

func (c *Client) doJSON(ctx context.Context, op string, timeout time.Duration, method, path string, payload any, expected []int, out any) (int, error) {
	r := request{
		op:       op,
		timeout:  timeout,
		method:   method,
		path:     path,
		expected: expected,
		out:      out,
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("%s: failed to encode request: %w", op, err)
		}
		r.body = bytes.NewReader(data)
		r.contentType = "application/json"
	}
	return c.do(ctx, r)
}

// do sends the request and decodes the body into r.out when the status code
// is one of r.expected. It returns the status code it got.
func (c *Client) do(ctx context.Context, r request) (int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, r.method, c.baseURL+r.path, r.body)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to build request: %w", r.op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", defaultUserAgent)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	for _, edit := range c.editors {
		if err := edit(reqCtx, req); err != nil {
			return 0, fmt.Errorf("%s: %w", r.op, err)
		}
	}

	log := zap.S().Named("gateway")
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debugw("request failed", "op", r.op, "method", r.method, "path", r.path, "error", err)
		if ctx.Err() == nil && errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return 0, &TimeoutError{Op: r.op, Timeout: r.timeout, Err: err}
		}
		return 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize+1))
	if err != nil {
		if ctx.Err() == nil && errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return resp.StatusCode, &TimeoutError{Op: r.op, Timeout: r.timeout, Err: err}
		}
		return resp.StatusCode, fmt.Errorf("%s: failed to read response: %w", r.op, err)
	}

	log.Debugw("request done",
		"op", r.op,
		"method", r.method,
		"path", r.path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if !slices.Contains(r.expected, resp.StatusCode) {
		return resp.StatusCode, NewStatusError(resp.StatusCode, body[:min(len(body), maxResponseBodySize)])
	}

	if len(body) > maxResponseBodySize {
		return resp.StatusCode, fmt.Errorf("%s: %w", r.op, ErrResponseTooLarge)
	}

	if r.out != nil {
		if err := json.Unmarshal(body, r.out); err != nil {
			return resp.StatusCode, &DecodeError{Op: r.op, Err: err}
		}
	}

	return resp.StatusCode, nil
}

func encodeEvidence(upload EvidenceUpload) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, evidenceFormField, upload.FileName))
	contentType := upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(upload.Content); err != nil {
		return nil, "", err
	}

	fields := [][2]string{
		{"case_id", upload.CaseID},
		{"evidence_type", upload.EvidenceType},
		{"description", upload.Description},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

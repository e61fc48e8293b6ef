package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"venom/internal/api"
	"venom/internal/cache"
)

// DefaultOrigin is used when the API base is empty or a bare path.
const DefaultOrigin = "http://127.0.0.1:8000"

// Cache resources.
const (
	resSkills    = "skills"
	resProjects  = "projects"
	resOptimizer = "optimizer"
	resAudit     = "audit"
)

// SkillClient is what the skills panel needs from the backend.
type SkillClient interface {
	APIBase() string
	ListSkills(ctx context.Context) ([]api.Skill, error)
	AddSkill(ctx context.Context, in api.SkillIn) (api.SkillRef, error)
	UpgradeSkill(ctx context.Context, in api.UpgradeIn) (api.UpgradeOut, error)
	SimulateTask(ctx context.Context, skillName string) (api.SimulateOut, error)
}

// ProjectClient is what the projects panel needs from the backend.
type ProjectClient interface {
	APIBase() string
	ListProjects(ctx context.Context) ([]api.Project, error)
	AddProject(ctx context.Context, in api.ProjectIn) (api.ProjectRef, error)
}

// OptimizerClient is what the optimizer panel needs from the backend.
type OptimizerClient interface {
	APIBase() string
	ListProjects(ctx context.Context) ([]api.Project, error)
	ListSkills(ctx context.Context) ([]api.Skill, error)
	Suggest(ctx context.Context, projectID int64) (api.OptimizerResult, error)
}

// AuditClient reads the audit trail.
type AuditClient interface {
	ListAudit(ctx context.Context) ([]api.AuditEntry, error)
}

// APIError is returned for non-2xx responses.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api error: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api error: %d: %s", e.Status, e.Detail)
}

// Client talks to the venom backend rooted at an API base address.
type Client struct {
	apiBase string
	origin  string
	http    *http.Client
	cache   *cache.Cache
	logger  *zap.Logger
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithOrigin sets the origin used to resolve an empty or path-only API base.
func WithOrigin(origin string) Option {
	return func(c *Client) { c.origin = strings.TrimRight(origin, "/") }
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCache enables response caching for GET requests.
func WithCache(ch *cache.Cache) Option {
	return func(c *Client) { c.cache = ch }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// New creates a Client. apiBase is kept verbatim and reported by APIBase.
func New(apiBase string, opts ...Option) *Client {
	c := &Client{
		apiBase: apiBase,
		origin:  DefaultOrigin,
		http:    &http.Client{},
		logger:  zap.NewNop(),
		timeout: 10 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// APIBase returns the configured API base exactly as given.
func (c *Client) APIBase() string { return c.apiBase }

// URL resolves path against the API base. An empty base means the same
// origin as the backend; a base starting with "/" is a path on that origin.
func (c *Client) URL(path string) string {
	base := c.apiBase
	if base == "" || strings.HasPrefix(base, "/") {
		base = c.origin + base
	}
	return strings.TrimRight(base, "/") + path
}

// ListSkills fetches GET /skills.
func (c *Client) ListSkills(ctx context.Context) ([]api.Skill, error) {
	var out []api.Skill
	err := c.getCached(ctx, resSkills, "/skills", &out)
	return out, err
}

// AddSkill posts a new skill.
func (c *Client) AddSkill(ctx context.Context, in api.SkillIn) (api.SkillRef, error) {
	var out api.SkillRef
	err := c.do(ctx, http.MethodPost, "/skills", in, &out)
	c.invalidate(err, resSkills, resOptimizer, resAudit)
	return out, err
}

// UpgradeSkill proposes a new skill version.
func (c *Client) UpgradeSkill(ctx context.Context, in api.UpgradeIn) (api.UpgradeOut, error) {
	var out api.UpgradeOut
	err := c.do(ctx, http.MethodPost, "/skills/upgrade", in, &out)
	c.invalidate(err, resSkills, resOptimizer, resAudit)
	return out, err
}

// UploadSkill uploads skill code with its tests.
func (c *Client) UploadSkill(ctx context.Context, in api.UploadIn) (api.UploadOut, error) {
	var out api.UploadOut
	err := c.do(ctx, http.MethodPost, "/skills/upload", in, &out)
	c.invalidate(err, resAudit)
	return out, err
}

// ActivateSkill activates a previous upload.
func (c *Client) ActivateSkill(ctx context.Context, in api.ActivateIn) (api.ActivateOut, error) {
	var out api.ActivateOut
	err := c.do(ctx, http.MethodPost, "/skills/activate", in, &out)
	c.invalidate(err, resAudit)
	return out, err
}

// SimulateTask asks the backend whether skillName can run.
func (c *Client) SimulateTask(ctx context.Context, skillName string) (api.SimulateOut, error) {
	var out api.SimulateOut
	err := c.do(ctx, http.MethodPost, "/simulate_task?skill_name="+url.QueryEscape(skillName), nil, &out)
	c.invalidate(err, resAudit)
	return out, err
}

// ListProjects fetches GET /projects.
func (c *Client) ListProjects(ctx context.Context) ([]api.Project, error) {
	var out []api.Project
	err := c.getCached(ctx, resProjects, "/projects", &out)
	return out, err
}

// AddProject posts a new project.
func (c *Client) AddProject(ctx context.Context, in api.ProjectIn) (api.ProjectRef, error) {
	var out api.ProjectRef
	err := c.do(ctx, http.MethodPost, "/projects", in, &out)
	c.invalidate(err, resProjects, resOptimizer, resAudit)
	return out, err
}

// Suggest fetches optimizer suggestions for a project. Suggestions are not
// cached because every call is audited on the backend.
func (c *Client) Suggest(ctx context.Context, projectID int64) (api.OptimizerResult, error) {
	var out api.OptimizerResult
	err := c.do(ctx, http.MethodGet, "/optimizer/"+strconv.FormatInt(projectID, 10), nil, &out)
	c.invalidate(err, resAudit)
	return out, err
}

// ListAudit fetches the latest audit entries.
func (c *Client) ListAudit(ctx context.Context) ([]api.AuditEntry, error) {
	var out []api.AuditEntry
	err := c.do(ctx, http.MethodGet, "/audit", nil, &out)
	return out, err
}

// Health calls GET / and returns the backend status.
func (c *Client) Health(ctx context.Context) (api.Status, error) {
	var out api.Status
	err := c.do(ctx, http.MethodGet, "/", nil, &out)
	return out, err
}

func (c *Client) invalidate(err error, resources ...string) {
	if err != nil || c.cache == nil {
		return
	}
	for _, r := range resources {
		c.cache.Invalidate(r)
	}
	c.cache.PurgeExpired()
}

// getCached decodes a GET response into out, serving from the cache when a
// fresh copy exists. Entries are keyed by the resolved URL so clients with
// different API bases can share one cache.
func (c *Client) getCached(ctx context.Context, resource, path string, out any) error {
	key := c.URL(path)
	if c.cache != nil {
		if raw, ok := cache.Lookup[[]byte](c.cache, resource, key); ok {
			return json.Unmarshal(raw, out)
		}
	}
	raw, err := c.raw(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	if c.cache != nil {
		c.cache.Set(resource, key, raw)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	raw, err := c.raw(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) raw(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	u := c.URL(path)
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, u, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", u, err)
	}
	c.logger.Debug("api call",
		zap.String("method", method),
		zap.String("url", u),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var eb api.ErrorBody
		if json.Unmarshal(data, &eb) == nil {
			apiErr.Detail = eb.Detail
		}
		return nil, apiErr
	}
	return data, nil
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

var (
	_ SkillClient     = (*Client)(nil)
	_ ProjectClient   = (*Client)(nil)
	_ OptimizerClient = (*Client)(nil)
	_ AuditClient     = (*Client)(nil)
)

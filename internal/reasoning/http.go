package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout is the HTTP request timeout for policy-service calls. Build
// workflows run asynchronously, so individual calls stay short.
const DefaultTimeout = 180 * time.Second

// pageSize is the maxResults value used for paginated listings.
const pageSize = 100

// HTTPClient implements Client over the service's JSON HTTP API.
type HTTPClient struct {
	endpoint string
	token    string
	http     *http.Client
}

// NewHTTPClient returns a service client for the given base endpoint. token
// may be empty for unauthenticated deployments.
func NewHTTPClient(endpoint, token string) *HTTPClient {
	return &HTTPClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		token:    token,
		http:     &http.Client{Timeout: DefaultTimeout},
	}
}

// do performs one JSON round-trip. body and out may be nil.
func (c *HTTPClient) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	reqURL := c.endpoint + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: op, Path: path, Message: "failed to encode request", Cause: err}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return &Error{Op: op, Path: path, Message: "failed to build request", Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Op: op, Path: path, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Op: op, Path: path, StatusCode: resp.StatusCode, Message: "failed to read response", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(data))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return &Error{Op: op, Path: path, StatusCode: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return &Error{Op: op, Path: path, StatusCode: resp.StatusCode, Message: "failed to decode response", Cause: err}
		}
	}
	return nil
}

// CreatePolicy creates an empty named policy resource with tags.
func (c *HTTPClient) CreatePolicy(ctx context.Context, name, description string, tags []Tag) (*PolicySummary, error) {
	body := struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Tags        []Tag  `json:"tags,omitempty"`
	}{Name: name, Description: description, Tags: tags}

	var summary PolicySummary
	if err := c.do(ctx, "CreatePolicy", http.MethodPost, "/policies", nil, body, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// StartBuildWorkflow submits source content to build rules into a policy.
func (c *HTTPClient) StartBuildWorkflow(ctx context.Context, resourceID string, doc BuildDocument) (string, error) {
	body := struct {
		WorkflowType string          `json:"buildWorkflowType"`
		Documents    []BuildDocument `json:"documents"`
	}{WorkflowType: "INGEST_CONTENT", Documents: []BuildDocument{doc}}

	var resp struct {
		BuildWorkflowID string `json:"buildWorkflowId"`
	}
	path := fmt.Sprintf("/policies/%s/build-workflows", url.PathEscape(resourceID))
	if err := c.do(ctx, "StartBuildWorkflow", http.MethodPost, path, nil, body, &resp); err != nil {
		return "", err
	}
	return resp.BuildWorkflowID, nil
}

// GetBuildWorkflow retrieves the state of one build workflow.
func (c *HTTPClient) GetBuildWorkflow(ctx context.Context, resourceID, workflowID string) (*Workflow, error) {
	var wf Workflow
	path := fmt.Sprintf("/policies/%s/build-workflows/%s", url.PathEscape(resourceID), url.PathEscape(workflowID))
	if err := c.do(ctx, "GetBuildWorkflow", http.MethodGet, path, nil, nil, &wf); err != nil {
		return nil, err
	}
	return &wf, nil
}

// ListBuildWorkflows lists all build workflows of a policy.
func (c *HTTPClient) ListBuildWorkflows(ctx context.Context, resourceID string) ([]Workflow, error) {
	path := fmt.Sprintf("/policies/%s/build-workflows", url.PathEscape(resourceID))

	var all []Workflow
	err := c.paginate(ctx, "ListBuildWorkflows", path, func(data json.RawMessage) (string, error) {
		var page struct {
			Workflows []Workflow `json:"buildWorkflows"`
			NextToken string     `json:"nextToken"`
		}
		if err := json.Unmarshal(data, &page); err != nil {
			return "", err
		}
		all = append(all, page.Workflows...)
		return page.NextToken, nil
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

// GetBuildWorkflowDefinition reads the policy definition from a completed
// workflow's result assets.
func (c *HTTPClient) GetBuildWorkflowDefinition(ctx context.Context, resourceID, workflowID string) (*Definition, error) {
	var resp struct {
		PolicyDefinition Definition `json:"policyDefinition"`
	}
	path := fmt.Sprintf("/policies/%s/build-workflows/%s/result-assets",
		url.PathEscape(resourceID), url.PathEscape(workflowID))
	query := url.Values{"assetType": []string{"POLICY_DEFINITION"}}
	if err := c.do(ctx, "GetBuildWorkflowDefinition", http.MethodGet, path, query, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.PolicyDefinition, nil
}

// ListPolicies lists all policy resources, tags included.
func (c *HTTPClient) ListPolicies(ctx context.Context) ([]PolicySummary, error) {
	var all []PolicySummary
	err := c.paginate(ctx, "ListPolicies", "/policies", func(data json.RawMessage) (string, error) {
		var page struct {
			Policies  []PolicySummary `json:"policies"`
			NextToken string          `json:"nextToken"`
		}
		if err := json.Unmarshal(data, &page); err != nil {
			return "", err
		}
		all = append(all, page.Policies...)
		return page.NextToken, nil
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

// ListPolicyVersions lists all versions of one policy resource.
func (c *HTTPClient) ListPolicyVersions(ctx context.Context, resourceID string) ([]PolicySummary, error) {
	path := fmt.Sprintf("/policies/%s/versions", url.PathEscape(resourceID))

	var all []PolicySummary
	err := c.paginate(ctx, "ListPolicyVersions", path, func(data json.RawMessage) (string, error) {
		var page struct {
			Versions  []PolicySummary `json:"versions"`
			NextToken string          `json:"nextToken"`
		}
		if err := json.Unmarshal(data, &page); err != nil {
			return "", err
		}
		all = append(all, page.Versions...)
		return page.NextToken, nil
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

// GetPolicy retrieves the metadata of a (possibly versioned) policy.
func (c *HTTPClient) GetPolicy(ctx context.Context, versionedResourceID string) (*PolicyDetail, error) {
	var detail PolicyDetail
	path := fmt.Sprintf("/policies/%s", url.PathEscape(versionedResourceID))
	if err := c.do(ctx, "GetPolicy", http.MethodGet, path, nil, nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExportPolicyVersion exports the definition of a published version.
func (c *HTTPClient) ExportPolicyVersion(ctx context.Context, versionedResourceID string) (*Definition, error) {
	var resp struct {
		PolicyDefinition Definition `json:"policyDefinition"`
	}
	path := fmt.Sprintf("/policies/%s/export", url.PathEscape(versionedResourceID))
	if err := c.do(ctx, "ExportPolicyVersion", http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.PolicyDefinition, nil
}

// CreateGuardrail binds a policy version to an evaluation endpoint.
func (c *HTTPClient) CreateGuardrail(ctx context.Context, name, description, versionedResourceID string, confidenceThreshold float64) (*Guardrail, error) {
	body := struct {
		Name                string   `json:"name"`
		Description         string   `json:"description"`
		Policies            []string `json:"policies"`
		ConfidenceThreshold float64  `json:"confidenceThreshold"`
	}{Name: name, Description: description, Policies: []string{versionedResourceID}, ConfidenceThreshold: confidenceThreshold}

	var gr Guardrail
	if err := c.do(ctx, "CreateGuardrail", http.MethodPost, "/guardrails", nil, body, &gr); err != nil {
		return nil, err
	}
	return &gr, nil
}

// DeleteGuardrail releases a guardrail resource.
func (c *HTTPClient) DeleteGuardrail(ctx context.Context, guardrailID string) error {
	path := fmt.Sprintf("/guardrails/%s", url.PathEscape(guardrailID))
	return c.do(ctx, "DeleteGuardrail", http.MethodDelete, path, nil, nil, nil)
}

// ApplyGuardrail evaluates serialized variable assignments against the
// guardrail and returns the raw assessment findings.
func (c *HTTPClient) ApplyGuardrail(ctx context.Context, guardrail *Guardrail, content string) ([]json.RawMessage, error) {
	body := struct {
		Content     string `json:"content"`
		OutputScope string `json:"outputScope"`
		Source      string `json:"source"`
	}{Content: content, OutputScope: "FULL", Source: "OUTPUT"}

	var resp struct {
		Findings []json.RawMessage `json:"findings"`
	}
	path := fmt.Sprintf("/guardrails/%s/versions/%s/apply",
		url.PathEscape(guardrail.ID), url.PathEscape(guardrail.Version))
	if err := c.do(ctx, "ApplyGuardrail", http.MethodPost, path, nil, body, &resp); err != nil {
		return nil, err
	}
	return resp.Findings, nil
}

// paginate repeatedly fetches path, feeding each raw page to consume, which
// returns the next page token or "" when done.
func (c *HTTPClient) paginate(ctx context.Context, op, path string, consume func(json.RawMessage) (string, error)) error {
	nextToken := ""
	for {
		query := url.Values{"maxResults": []string{fmt.Sprintf("%d", pageSize)}}
		if nextToken != "" {
			query.Set("nextToken", nextToken)
		}

		var raw json.RawMessage
		if err := c.do(ctx, op, http.MethodGet, path, query, nil, &raw); err != nil {
			return err
		}

		token, err := consume(raw)
		if err != nil {
			return &Error{Op: op, Path: path, Message: "failed to decode page", Cause: err}
		}
		if token == "" {
			return nil
		}
		nextToken = token
	}
}

package aem

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// Bodies longer than this are cut when quoted in errors.
const maxQuotedBody = 512

type response struct {
	StatusCode int
	Status     string
	Body       []byte
}

// StatusError reports a response the repository answered with, but not the one we wanted.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	var reason string
	switch e.StatusCode {
	case http.StatusUnauthorized:
		reason = "authentication failed"
	case http.StatusForbidden:
		reason = "not permitted"
	case http.StatusServiceUnavailable:
		reason = "service is not available"
	case http.StatusInternalServerError:
		reason = "internal server error"
	case http.StatusConflict:
		reason = "conflict"
	default:
		reason = "unexpected HTTP response status"
	}

	msg := fmt.Sprintf("aem: %s: %s %s: %s", reason, e.Method, e.URL, e.Status)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// FolderExists probes <path>?cmd=mkdir.  Only a 200 counts as present.
func (api *API) FolderExists(ctx context.Context, folderPath string) (bool, error) {
	ep, err := api.folderEndpoint(folderPath)
	if err != nil {
		return false, err
	}

	resp, err := api.request(ctx, http.MethodGet, ep, nil, "")
	if err != nil {
		return false, fmt.Errorf("aem: couldn't probe folder: %w", err)
	}

	return resp.StatusCode == http.StatusOK, nil
}

func (api *API) CreateFolder(ctx context.Context, folderPath string, folder FolderDescriptor) error {
	ep, err := api.folderEndpoint(folderPath)
	if err != nil {
		return err
	}

	return api.postJSON(ctx, ep, folder, http.StatusCreated)
}

// PageExists probes the rendered <path>.html.
func (api *API) PageExists(ctx context.Context, pagePath string) (bool, error) {
	ep, err := api.pageEndpoint(pagePath)
	if err != nil {
		return false, err
	}

	resp, err := api.request(ctx, http.MethodGet, ep, nil, "")
	if err != nil {
		return false, fmt.Errorf("aem: couldn't probe page: %w", err)
	}

	return resp.StatusCode == http.StatusOK, nil
}

func (api *API) CreatePage(ctx context.Context, pagePath string, page PageDescriptor) error {
	ep, err := api.pageEndpoint(pagePath)
	if err != nil {
		return err
	}

	return api.postJSON(ctx, ep, page, http.StatusCreated)
}

// UploadAsset PUTs raw bytes to <folder>/<name>, replacing whatever is there.
func (api *API) UploadAsset(ctx context.Context, folderPath, name, mimeType string, payload []byte) error {
	ep, err := api.nodeEndpoint(folderPath, name)
	if err != nil {
		return err
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	resp, err := api.request(ctx, http.MethodPut, ep, bytes.NewReader(payload), mimeType)
	if err != nil {
		return fmt.Errorf("aem: couldn't upload asset: %w", err)
	}

	return checkStatus(http.MethodPut, ep, resp, http.StatusOK, http.StatusCreated, http.StatusNoContent)
}

// WritePageContent POSTs the jcr:content node of a page, replacing whatever is there.
func (api *API) WritePageContent(ctx context.Context, pagePath string, content PageContentDescriptor) error {
	ep, err := api.nodeEndpoint(pagePath, "jcr:content")
	if err != nil {
		return err
	}

	return api.postJSON(ctx, ep, content, http.StatusOK, http.StatusCreated, http.StatusNoContent)
}

func (api *API) postJSON(ctx context.Context, ep *url.URL, v any, accepted ...int) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("aem: couldn't encode json payload: %w", err)
	}

	resp, err := api.request(ctx, http.MethodPost, ep, bytes.NewReader(body), "application/json")
	if err != nil {
		return fmt.Errorf("aem: couldn't perform request: %w", err)
	}

	return checkStatus(http.MethodPost, ep, resp, accepted...)
}

func checkStatus(method string, ep *url.URL, resp *response, accepted ...int) error {
	if slices.Contains(accepted, resp.StatusCode) {
		return nil
	}

	body := strings.TrimSpace(string(resp.Body))
	if len(body) > maxQuotedBody {
		body = body[:maxQuotedBody] + "..."
	}

	return &StatusError{
		Method:     method,
		URL:        ep.String(),
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       body,
	}
}

// request performs one bounded call.  Any status is returned to the caller; only transport
// problems are errors.
func (api *API) request(ctx context.Context, method string, url *url.URL, body io.Reader, contentType string) (*response, error) {
	if api.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, api.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, url.String(), body)
	if err != nil {
		return nil, fmt.Errorf("aem: couldn't instantiate http request: %w", err)
	}

	req.Header.Add("Accept", "application/json, */*")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if api.username != "" {
		req.SetBasicAuth(api.username, api.password)
	}

	httpResp, err := api.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("aem: couldn't perform http request: %w", err)
	}

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		httpResp.Body.Close()
		return nil, fmt.Errorf("aem: couldn't read http response body: %w", err)
	}

	if err := httpResp.Body.Close(); err != nil {
		return nil, fmt.Errorf("aem: couldn't close response body: %w", err)
	}

	return &response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Body:       respBody,
	}, nil
}

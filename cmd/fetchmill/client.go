package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fetchmill/internal/daemon"
)

// apiClient talks to the daemon's local HTTP API.
type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(addr string) *apiClient {
	base := addr
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &apiClient{
		base: strings.TrimRight(base, "/"),
		// Generous timeout; file downloads can be large.
		http: &http.Client{Timeout: 10 * time.Minute},
	}
}

func (c *apiClient) Submit(req daemon.SubmitRequest) (daemon.TaskPayload, error) {
	var resp daemon.TaskResponse
	if err := c.do(http.MethodPost, "/api/tasks", req, &resp); err != nil {
		return daemon.TaskPayload{}, err
	}
	return resp.Task, nil
}

func (c *apiClient) List() ([]daemon.TaskPayload, error) {
	var resp daemon.TaskListResponse
	if err := c.do(http.MethodGet, "/api/tasks", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

func (c *apiClient) Get(id string) (daemon.TaskPayload, error) {
	var resp daemon.TaskResponse
	if err := c.do(http.MethodGet, "/api/tasks/"+url.PathEscape(id), nil, &resp); err != nil {
		return daemon.TaskPayload{}, err
	}
	return resp.Task, nil
}

func (c *apiClient) Pause(id string) (daemon.TaskPayload, error) {
	var resp daemon.TaskResponse
	if err := c.do(http.MethodPost, "/api/tasks/"+url.PathEscape(id)+"/pause", nil, &resp); err != nil {
		return daemon.TaskPayload{}, err
	}
	return resp.Task, nil
}

func (c *apiClient) Resume(id string) (daemon.TaskPayload, error) {
	var resp daemon.TaskResponse
	if err := c.do(http.MethodPost, "/api/tasks/"+url.PathEscape(id)+"/resume", nil, &resp); err != nil {
		return daemon.TaskPayload{}, err
	}
	return resp.Task, nil
}

func (c *apiClient) Cancel(id string) error {
	return c.do(http.MethodDelete, "/api/tasks/"+url.PathEscape(id), nil, nil)
}

func (c *apiClient) Status() (daemon.StatusResponse, error) {
	var resp daemon.StatusResponse
	if err := c.do(http.MethodGet, "/api/status", nil, &resp); err != nil {
		return daemon.StatusResponse{}, err
	}
	return resp, nil
}

func (c *apiClient) History(limit int) ([]daemon.HistoryPayload, error) {
	path := "/api/history"
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}
	var resp daemon.HistoryResponse
	if err := c.do(http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

// FetchFile streams the produced file into w and returns the suggested
// filename and byte count.
func (c *apiClient) FetchFile(id string, w io.Writer) (string, int64, error) {
	resp, err := c.http.Get(c.base + "/api/tasks/" + url.PathEscape(id) + "/file")
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", 0, decodeAPIError(resp)
	}

	filename := dispositionFilename(resp.Header.Get("Content-Disposition"))
	written, err := io.Copy(w, resp.Body)
	if err != nil {
		return filename, written, fmt.Errorf("download interrupted: %w", err)
	}
	return filename, written, nil
}

func (c *apiClient) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", c.base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeAPIError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload); err == nil && payload.Error != "" {
		return fmt.Errorf("%s", payload.Error)
	}
	return fmt.Errorf("daemon returned %s", resp.Status)
}

func dispositionFilename(disposition string) string {
	_, after, found := strings.Cut(disposition, "filename=")
	if !found {
		return ""
	}
	return strings.Trim(strings.TrimSpace(after), `"`)
}

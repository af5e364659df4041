// Package nocodb is the record-and-link remote store adapter. It speaks the
// v3 data API: flat records per table plus named link fields between them,
// authenticated with a static xc-token header.
package nocodb

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

const defaultPageSize = 200

type Client struct {
	baseURL   string
	token     string
	projectID string
	httpc     *http.Client
}

func NewClient(baseURL, token, projectID string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     token,
		projectID: projectID,
		httpc:     &http.Client{Timeout: 30 * time.Second},
	}
}

type (
	// RecordID tolerates both spellings the server uses: some installs
	// return record ids as JSON strings, others as numbers.
	RecordID string

	Record struct {
		ID     RecordID       `json:"id"`
		Fields map[string]any `json:"fields"`
	}

	listResponse struct {
		Records []Record `json:"records"`
		Next    string   `json:"next"`
	}

	// ListParams narrows a records query. Zero values are omitted.
	ListParams struct {
		Where    string
		PageSize int
	}

	// APIError is a non-2xx response from the server.
	APIError struct {
		Status int
		Msg    string
		Path   string
	}
)

func (id *RecordID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = RecordID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("record id %s: %w", data, err)
	}
	*id = RecordID(n.String())
	return nil
}

func (e *APIError) Error() string {
	return fmt.Sprintf("nocodb %d on %s: %s", e.Status, e.Path, e.Msg)
}

// isAlreadyExists reports the 422 the server returns when linking a pair
// that is already linked. Treated as success by the callers.
func isAlreadyExists(err error) bool {
	ae, ok := err.(*APIError)
	return ok && ae.Status == http.StatusUnprocessableEntity &&
		strings.Contains(strings.ToLower(ae.Msg), "already exists")
}

// isNotLinked reports the unlink equivalent; versions differ between 404
// and 422 spellings.
func isNotLinked(err error) bool {
	ae, ok := err.(*APIError)
	if !ok {
		return false
	}
	if ae.Status != http.StatusNotFound && ae.Status != http.StatusUnprocessableEntity {
		return false
	}
	msg := strings.ToLower(ae.Msg)
	return strings.Contains(msg, "not found") || strings.Contains(msg, "does not exist")
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("xc-token", c.token)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("nocodb request %s: %w", path, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read response %s: %w", path, err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return &APIError{Status: res.StatusCode, Msg: errorMessage(raw), Path: path}
	}
	if out != nil && len(raw) > 0 {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(out); err != nil {
			return fmt.Errorf("decode response %s: %w", path, err)
		}
	}
	return nil
}

func errorMessage(raw []byte) string {
	var body struct {
		Msg     string `json:"msg"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Msg != "" {
			return body.Msg
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return string(raw)
}

func (c *Client) recordsPath(tableID string) string {
	return fmt.Sprintf("/api/v3/data/%s/%s/records", c.projectID, tableID)
}

func (c *Client) linksPath(tableID, linkFieldID, recordID string) string {
	return fmt.Sprintf("/api/v3/data/%s/%s/links/%s/%s",
		c.projectID, tableID, linkFieldID, url.PathEscape(recordID))
}

// ListRecords fetches one page of records from a table.
func (c *Client) ListRecords(ctx context.Context, tableID string, params ListParams) ([]Record, error) {
	q := url.Values{}
	if params.Where != "" {
		q.Set("where", params.Where)
	}
	size := params.PageSize
	if size == 0 {
		size = defaultPageSize
	}
	q.Set("pageSize", fmt.Sprint(size))

	var res listResponse
	if err := c.do(ctx, http.MethodGet, c.recordsPath(tableID)+"?"+q.Encode(), nil, &res); err != nil {
		return nil, err
	}
	return res.Records, nil
}

// CreateRecords inserts the given field sets and returns the created
// records with server-assigned ids. A single-element batch uses the
// compact request shape the v3 API prefers.
func (c *Client) CreateRecords(ctx context.Context, tableID string, fields []map[string]any) ([]Record, error) {
	var body any
	if len(fields) == 1 {
		body = map[string]any{"fields": fields[0]}
	} else {
		records := make([]map[string]any, len(fields))
		for i, f := range fields {
			records[i] = map[string]any{"fields": f}
		}
		body = map[string]any{"records": records}
	}

	var res listResponse
	if err := c.do(ctx, http.MethodPost, c.recordsPath(tableID), body, &res); err != nil {
		return nil, err
	}
	return res.Records, nil
}

// UpdateRecord patches the given fields on one record.
func (c *Client) UpdateRecord(ctx context.Context, tableID, recordID string, fields map[string]any) error {
	body := map[string]any{"id": recordID, "fields": fields}
	return c.do(ctx, http.MethodPatch, c.recordsPath(tableID), body, nil)
}

// DeleteRecord removes one record by id.
func (c *Client) DeleteRecord(ctx context.Context, tableID, recordID string) error {
	return c.do(ctx, http.MethodDelete, c.recordsPath(tableID), map[string]any{"id": recordID}, nil)
}

// ListLinks fetches the records linked to recordID through a link field.
func (c *Client) ListLinks(ctx context.Context, tableID, linkFieldID, recordID string) ([]Record, error) {
	var res listResponse
	path := c.linksPath(tableID, linkFieldID, recordID) + fmt.Sprintf("?pageSize=%d", defaultPageSize)
	if err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return res.Records, nil
}

// LinkRecords links childIDs to recordID. Linking an already-linked pair
// is a no-op.
func (c *Client) LinkRecords(ctx context.Context, tableID, linkFieldID, recordID string, childIDs []string) error {
	if len(childIDs) == 0 {
		return nil
	}
	err := c.do(ctx, http.MethodPost, c.linksPath(tableID, linkFieldID, recordID), linkBody(childIDs), nil)
	if isAlreadyExists(err) {
		return nil
	}
	return err
}

// UnlinkRecords removes links. Unlinking a pair that is not linked is a
// no-op.
func (c *Client) UnlinkRecords(ctx context.Context, tableID, linkFieldID, recordID string, childIDs []string) error {
	if len(childIDs) == 0 {
		return nil
	}
	err := c.do(ctx, http.MethodDelete, c.linksPath(tableID, linkFieldID, recordID), linkBody(childIDs), nil)
	if isNotLinked(err) {
		return nil
	}
	return err
}

// linkBody builds the v3 link payload: a bare object for one id, an array
// for several.
func linkBody(ids []string) any {
	if len(ids) == 1 {
		return map[string]string{"id": ids[0]}
	}
	arr := make([]map[string]string, len(ids))
	for i, id := range ids {
		arr[i] = map[string]string{"id": id}
	}
	return arr
}

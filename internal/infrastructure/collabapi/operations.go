package collabapi

import (
	"context"
	"encoding/json"
	"time"
)

// CreatedDomain is the answer of createDomain.
type CreatedDomain struct {
	Host      string `json:"host"`
	AccessKey string `json:"accessKey"`
}

// DomainInfo summarizes a domain and its captured traffic.
type DomainInfo struct {
	Host             string `json:"host"`
	RequestCountHTTP int    `json:"requestCountHttp"`
	RequestCountDNS  int    `json:"requestCountDns"`
	RequestCountSMTP int    `json:"requestCountSmtp"`
}

// Header is one response header of a pattern.
type Header struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Pattern is an HTTP response served for matching paths of a domain.
type Pattern struct {
	ID              string   `json:"id"`
	Host            string   `json:"host,omitempty"`
	Pattern         string   `json:"pattern"`
	Priority        int      `json:"priority"`
	ResponseBody    string   `json:"responsebody"`
	ResponseCode    int      `json:"responsecode"`
	ResponseHeaders []Header `json:"responseheaders"`
	ExternalHandler string   `json:"externalHandler,omitempty"`
}

// DNS record response types.
const (
	ResponseTypeStatic = "static"
	ResponseTypeRebind = "rebind"
)

// DNSRecord is a DNS answer served for a name under a domain.
type DNSRecord struct {
	ID           string `json:"id"`
	Host         string `json:"host,omitempty"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	TTL          string `json:"ttl,omitempty"`
	ResponseType string `json:"responsetype"`
	Value        string `json:"value,omitempty"`
	Value1       string `json:"value1,omitempty"`
	Value2       string `json:"value2,omitempty"`
}

// RequestKind selects which captured traffic to list.
type RequestKind string

// Request kinds.
const (
	KindHTTP RequestKind = "http"
	KindDNS  RequestKind = "dns"
	KindSMTP RequestKind = "smtp"
)

func (k RequestKind) op() string {
	switch k {
	case KindDNS:
		return "getDNSRequests"
	case KindSMTP:
		return "getSMTPRequests"
	default:
		return "getRequests"
	}
}

// CapturedRequest is one logged interaction. The backend does not fix its
// shape, so fields are kept raw.
type CapturedRequest map[string]json.RawMessage

// Timestamp returns the capture time when the entry carries a unix timestamp.
func (r CapturedRequest) Timestamp() (time.Time, bool) {
	raw, ok := r["timestamp"]
	if !ok {
		return time.Time{}, false
	}
	var sec int64
	if err := json.Unmarshal(raw, &sec); err != nil {
		return time.Time{}, false
	}
	return time.Unix(sec, 0).UTC(), true
}

// String returns a string field, or "" when absent or not a string.
func (r CapturedRequest) String(key string) string {
	var s string
	if raw, ok := r[key]; ok {
		_ = json.Unmarshal(raw, &s)
	}
	return s
}

// RequestFilter narrows GetRequests.
type RequestFilter struct {
	// After keeps entries captured strictly after this time. Zero means all.
	After time.Time

	// PatternID keeps HTTP entries served by that pattern.
	PatternID string
}

type keyRequest struct {
	AccessKey string `json:"accessKey"`
}

type idRequest struct {
	AccessKey string `json:"accessKey"`
	ID        string `json:"id"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// CreateDomain registers a new domain. An empty host lets the backend pick one.
func (c *Client) CreateDomain(ctx context.Context, host string) (CreatedDomain, error) {
	var out CreatedDomain
	err := c.call(ctx, "createDomain", map[string]string{"host": host}, &out)
	return out, err
}

// GetDomain returns the host and traffic counters for accessKey.
func (c *Client) GetDomain(ctx context.Context, accessKey string) (DomainInfo, error) {
	var out DomainInfo
	err := c.call(ctx, "getDomain", keyRequest{AccessKey: accessKey}, &out)
	return out, err
}

// GetRequests lists captured traffic of the given kind.
func (c *Client) GetRequests(
	ctx context.Context,
	kind RequestKind,
	accessKey string,
	filter RequestFilter,
) ([]CapturedRequest, error) {
	body := map[string]any{"accessKey": accessKey}
	if !filter.After.IsZero() {
		body["after"] = filter.After.Unix()
	}
	if filter.PatternID != "" && kind == KindHTTP {
		body["patternId"] = filter.PatternID
	}

	out := make([]CapturedRequest, 0)
	if err := c.call(ctx, kind.op(), body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetPatterns lists the response patterns of a domain.
func (c *Client) GetPatterns(ctx context.Context, accessKey string) ([]Pattern, error) {
	out := make([]Pattern, 0)
	if err := c.call(ctx, "getPatterns", keyRequest{AccessKey: accessKey}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreatePattern adds a catch-all pattern with backend defaults.
func (c *Client) CreatePattern(ctx context.Context, accessKey string) (Pattern, error) {
	var out Pattern
	err := c.call(ctx, "createPattern", keyRequest{AccessKey: accessKey}, &out)
	return out, err
}

// UpdatePattern replaces the editable fields of p. It reports whether anything changed.
func (c *Client) UpdatePattern(ctx context.Context, accessKey string, p Pattern) (bool, error) {
	var out successResponse
	err := c.call(ctx, "updatePattern", map[string]any{"accessKey": accessKey, "response": p}, &out)
	return out.Success, err
}

// DeletePattern removes a pattern. It reports whether it existed.
func (c *Client) DeletePattern(ctx context.Context, accessKey, id string) (bool, error) {
	var out successResponse
	err := c.call(ctx, "deletePattern", idRequest{AccessKey: accessKey, ID: id}, &out)
	return out.Success, err
}

// GetDNSRecords lists the DNS records of a domain.
func (c *Client) GetDNSRecords(ctx context.Context, accessKey string) ([]DNSRecord, error) {
	out := make([]DNSRecord, 0)
	if err := c.call(ctx, "getDnsRecords", keyRequest{AccessKey: accessKey}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateDNSRecord adds a TXT record with backend defaults.
func (c *Client) CreateDNSRecord(ctx context.Context, accessKey string) (DNSRecord, error) {
	var out DNSRecord
	err := c.call(ctx, "createDnsRecord", keyRequest{AccessKey: accessKey}, &out)
	return out, err
}

// UpdateDNSRecord replaces the editable fields of r. It reports whether anything changed.
func (c *Client) UpdateDNSRecord(ctx context.Context, accessKey string, r DNSRecord) (bool, error) {
	var out successResponse
	err := c.call(ctx, "updateDnsRecord", map[string]any{"accessKey": accessKey, "record": r}, &out)
	return out.Success, err
}

// DeleteDNSRecord removes a DNS record. It reports whether it existed.
func (c *Client) DeleteDNSRecord(ctx context.Context, accessKey, id string) (bool, error) {
	var out successResponse
	err := c.call(ctx, "deleteDnsRecord", idRequest{AccessKey: accessKey, ID: id}, &out)
	return out.Success, err
}

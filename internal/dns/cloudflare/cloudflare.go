package cloudflare

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-ddns/internal/dns"
)

const (
	DefaultBaseURL = "https://api.cloudflare.com/client/v4"
	defaultTimeout = 30 * time.Second
	defaultPerPage = 100
	// autoTTL asks Cloudflare to pick the TTL.
	autoTTL = 1
)

// Provider implements dns.Provider for the Cloudflare v4 API.
type Provider struct {
	baseURL  string
	apiToken string
	perPage  int
	client   *http.Client
	log      logr.Logger
}

// New creates a Cloudflare provider from the given settings map.
// Required settings: api_token.
// Optional settings: base_url, timeout (default 30s), per_page (default 100),
// skip_tls_verify (default false).
func New(log logr.Logger, settings map[string]string) (*Provider, error) {
	apiToken := settings["api_token"]
	if apiToken == "" {
		return nil, fmt.Errorf("cloudflare: missing required setting 'api_token'")
	}

	baseURL := settings["base_url"]
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("cloudflare: invalid base_url %q: %w", baseURL, err)
	}

	timeout := defaultTimeout
	if v := settings["timeout"]; v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("cloudflare: invalid timeout %q: %w", v, err)
		}
		timeout = parsed
	}

	perPage := defaultPerPage
	if v := settings["per_page"]; v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("cloudflare: invalid per_page %q", v)
		}
		perPage = parsed
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if v := settings["skip_tls_verify"]; v == "true" {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Provider{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiToken: apiToken,
		perPage:  perPage,
		client:   &http.Client{Transport: transport, Timeout: timeout},
		log:      log,
	}, nil
}

// envelope is the response wrapper shared by every Cloudflare endpoint.
type envelope struct {
	Success    bool            `json:"success"`
	Errors     []apiMessage    `json:"errors"`
	Result     json.RawMessage `json:"result"`
	ResultInfo *resultInfo     `json:"result_info"`
}

type apiMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type resultInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
	Count      int `json:"count"`
	TotalCount int `json:"total_count"`
}

type zoneResult struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type recordResult struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Content string   `json:"content"`
	Comment *string  `json:"comment"`
	Proxied bool     `json:"proxied"`
	Tags    []string `json:"tags"`
	TTL     int      `json:"ttl"`
}

// recordBody is the JSON body for create calls.
type recordBody struct {
	Type    string   `json:"type"`
	Name    string   `json:"name"`
	Content string   `json:"content"`
	TTL     int      `json:"ttl"`
	Proxied bool     `json:"proxied"`
	Comment string   `json:"comment,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// do executes a request against the API and unwraps the response envelope.
func (p *Provider) do(ctx context.Context, op, method, path string, query url.Values, body interface{}) (*envelope, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("cloudflare: marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	u := p.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("cloudflare: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &dns.TransportError{Op: "cloudflare: " + op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &dns.TransportError{Op: "cloudflare: " + op, Err: fmt.Errorf("reading response: %w", err)}
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		msg := strings.TrimSpace(string(data))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return nil, &dns.ProviderError{Op: "cloudflare: " + op, Status: resp.StatusCode, Messages: []string{"undecodable response: " + msg}}
	}
	if resp.StatusCode/100 != 2 || !env.Success {
		pe := &dns.ProviderError{Op: "cloudflare: " + op, Status: resp.StatusCode}
		for _, m := range env.Errors {
			pe.Messages = append(pe.Messages, fmt.Sprintf("%d: %s", m.Code, m.Message))
		}
		return nil, pe
	}
	return &env, nil
}

// list walks every page of a collection endpoint.
func (p *Provider) list(ctx context.Context, op, path string, each func(json.RawMessage) error) error {
	for page := 1; ; page++ {
		query := url.Values{
			"page":     []string{strconv.Itoa(page)},
			"per_page": []string{strconv.Itoa(p.perPage)},
		}
		env, err := p.do(ctx, op, http.MethodGet, path, query, nil)
		if err != nil {
			return err
		}
		if err := each(env.Result); err != nil {
			return &dns.ProviderError{Op: "cloudflare: " + op, Messages: []string{"decode result: " + err.Error()}}
		}
		if env.ResultInfo == nil || page >= env.ResultInfo.TotalPages {
			return nil
		}
	}
}

// ListZones returns every zone visible to the API token.
func (p *Provider) ListZones(ctx context.Context) ([]dns.Zone, error) {
	var zones []dns.Zone
	err := p.list(ctx, "list zones", "zones", func(raw json.RawMessage) error {
		var page []zoneResult
		if err := json.Unmarshal(raw, &page); err != nil {
			return err
		}
		for _, z := range page {
			zones = append(zones, dns.Zone{ID: z.ID, Name: z.Name})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	p.log.V(1).Info("listed zones", "count", len(zones))
	return zones, nil
}

// ListRecords returns every record of a zone.
func (p *Provider) ListRecords(ctx context.Context, zoneID string) ([]dns.Record, error) {
	var records []dns.Record
	err := p.list(ctx, "list records", fmt.Sprintf("zones/%s/dns_records", url.PathEscape(zoneID)), func(raw json.RawMessage) error {
		var page []recordResult
		if err := json.Unmarshal(raw, &page); err != nil {
			return err
		}
		for _, r := range page {
			rec := dns.Record{
				ID:      r.ID,
				Name:    r.Name,
				Type:    r.Type,
				Content: r.Content,
				Proxied: r.Proxied,
				Tags:    r.Tags,
				TTL:     r.TTL,
			}
			if r.Comment != nil {
				rec.Comment = *r.Comment
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	p.log.V(1).Info("listed records", "zone", zoneID, "count", len(records))
	return records, nil
}

// CreateRecord adds a record to a zone.
func (p *Provider) CreateRecord(ctx context.Context, zoneID string, record dns.Record) error {
	p.log.Info("creating record", "zone", zoneID, "name", record.Name, "type", record.Type, "content", record.Content)

	ttl := record.TTL
	if ttl == 0 {
		ttl = autoTTL
	}
	body := recordBody{
		Type:    record.Type,
		Name:    record.Name,
		Content: record.Content,
		TTL:     ttl,
		Proxied: record.Proxied,
		Comment: record.Comment,
		Tags:    record.Tags,
	}
	env, err := p.do(ctx, "create record", http.MethodPost, fmt.Sprintf("zones/%s/dns_records", url.PathEscape(zoneID)), nil, body)
	if err != nil {
		return err
	}

	var created recordResult
	if err := json.Unmarshal(env.Result, &created); err == nil {
		p.log.Info("record created", "id", created.ID)
	}
	return nil
}

// DeleteRecord removes a record. The API must confirm the same record id.
func (p *Provider) DeleteRecord(ctx context.Context, zoneID, recordID string) error {
	p.log.Info("deleting record", "zone", zoneID, "id", recordID)

	path := fmt.Sprintf("zones/%s/dns_records/%s", url.PathEscape(zoneID), url.PathEscape(recordID))
	env, err := p.do(ctx, "delete record", http.MethodDelete, path, nil, nil)
	if err != nil {
		return err
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(env.Result, &result); err != nil || result.ID != recordID {
		return &dns.ProviderError{
			Op:       "cloudflare: delete record",
			Messages: []string{fmt.Sprintf("confirmation id %q does not match %q", result.ID, recordID)},
		}
	}

	p.log.Info("record deleted", "id", recordID)
	return nil
}

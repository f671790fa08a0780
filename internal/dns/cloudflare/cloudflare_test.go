package cloudflare

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-ddns/internal/dns"
)

func TestNew_ValidSettings(t *testing.T) {
	p, err := New(logr.Discard(), map[string]string{"api_token": "tok"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.baseURL != DefaultBaseURL {
		t.Errorf("expected default base URL, got %q", p.baseURL)
	}
	if p.perPage != defaultPerPage {
		t.Errorf("expected per_page %d, got %d", defaultPerPage, p.perPage)
	}
	if p.client.Timeout != defaultTimeout {
		t.Errorf("expected timeout %v, got %v", defaultTimeout, p.client.Timeout)
	}
}

func TestNew_CustomSettings(t *testing.T) {
	p, err := New(logr.Discard(), map[string]string{
		"api_token":       "tok",
		"base_url":        "http://127.0.0.1:8080/client/v4/",
		"timeout":         "5s",
		"per_page":        "20",
		"skip_tls_verify": "true",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.baseURL != "http://127.0.0.1:8080/client/v4" {
		t.Errorf("expected trailing slash trimmed, got %q", p.baseURL)
	}
	if p.client.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", p.client.Timeout)
	}
	if p.perPage != 20 {
		t.Errorf("expected per_page 20, got %d", p.perPage)
	}
}

func TestNew_InvalidSettings(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]string
	}{
		{"missing token", map[string]string{}},
		{"bad timeout", map[string]string{"api_token": "tok", "timeout": "soon"}},
		{"bad per_page", map[string]string{"api_token": "tok", "per_page": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(logr.Discard(), tt.settings); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func newTestProvider(t *testing.T, h http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	p, err := New(logr.Discard(), map[string]string{
		"api_token": "test-token",
		"base_url":  srv.URL,
		"per_page":  "2",
	})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestListZones_Paginates(t *testing.T) {
	pages := map[string][]map[string]string{
		"1": {{"id": "z1", "name": "example.com"}, {"id": "z2", "name": "example.org"}},
		"2": {{"id": "z3", "name": "example.net"}},
	}
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected Authorization header %q", got)
		}
		if r.URL.Path != "/zones" || r.URL.Query().Get("per_page") != "2" {
			t.Errorf("unexpected request %s", r.URL)
		}
		page := r.URL.Query().Get("page")
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":     true,
			"errors":      []interface{}{},
			"result":      pages[page],
			"result_info": map[string]int{"total_pages": 2},
		})
	})

	zones, err := p.ListZones(context.Background())
	if err != nil {
		t.Fatalf("ListZones: %v", err)
	}
	if len(zones) != 3 {
		t.Fatalf("expected 3 zones across pages, got %d", len(zones))
	}
	if zones[2].ID != "z3" || zones[2].Name != "example.net" {
		t.Errorf("unexpected zone %+v", zones[2])
	}
}

func TestListZones_APIFailure(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]interface{}{
			"success": false,
			"errors":  []map[string]interface{}{{"code": 9109, "message": "Invalid access token"}},
			"result":  nil,
		})
	})

	_, err := p.ListZones(context.Background())
	if !dns.IsProviderError(err) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Invalid access token") {
		t.Errorf("expected API message in error, got %q", err.Error())
	}
}

func TestListZones_Unreachable(t *testing.T) {
	p, err := New(logr.Discard(), map[string]string{
		"api_token": "tok",
		"base_url":  "http://127.0.0.1:1",
		"timeout":   "1s",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.ListZones(context.Background()); !dns.IsTransportError(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestListRecords(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/zones/z1/dns_records" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"result": []map[string]interface{}{
				{"id": "r1", "name": "home.example.com", "type": "A", "content": "8.8.8.8", "comment": "[dev] home", "proxied": true, "ttl": 1},
				{"id": "r2", "name": "mail.example.com", "type": "MX", "content": "mx.example.com", "comment": nil},
			},
			"result_info": map[string]int{"total_pages": 1},
		})
	})

	records, err := p.ListRecords(context.Background(), "z1")
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Comment != "[dev] home" || !records[0].Proxied {
		t.Errorf("unexpected record %+v", records[0])
	}
	if records[1].Comment != "" {
		t.Errorf("expected null comment to decode as empty, got %q", records[1].Comment)
	}
}

func TestCreateRecord(t *testing.T) {
	var got recordBody
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/zones/z1/dns_records" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, &got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"result":  map[string]string{"id": "new-id"},
		})
	})

	err := p.CreateRecord(context.Background(), "z1", dns.Record{
		Name:    "home.example.com",
		Type:    "AAAA",
		Content: "2400:cb00::1",
		Comment: "[dev] home",
		Tags:    []string{"ddns:home"},
	})
	if err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}
	if got.TTL != autoTTL {
		t.Errorf("expected unset TTL to be sent as %d, got %d", autoTTL, got.TTL)
	}
	if got.Type != "AAAA" || got.Content != "2400:cb00::1" || got.Comment != "[dev] home" {
		t.Errorf("unexpected body %+v", got)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "ddns:home" {
		t.Errorf("unexpected tags %v", got.Tags)
	}
}

func TestCreateRecord_Rejected(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"errors":  []map[string]interface{}{{"code": 81057, "message": "Record already exists."}},
		})
	})

	err := p.CreateRecord(context.Background(), "z1", dns.Record{Name: "x", Type: "A", Content: "8.8.8.8"})
	if !dns.IsProviderError(err) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestDeleteRecord(t *testing.T) {
	tests := []struct {
		name      string
		confirmID string
		wantErr   bool
	}{
		{"confirmed", "r1", false},
		{"mismatched id", "r2", true},
		{"missing id", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodDelete || r.URL.Path != "/zones/z1/dns_records/r1" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				writeJSON(w, http.StatusOK, map[string]interface{}{
					"success": true,
					"result":  map[string]string{"id": tt.confirmID},
				})
			})

			err := p.DeleteRecord(context.Background(), "z1", "r1")
			if tt.wantErr {
				if !dns.IsProviderError(err) {
					t.Fatalf("expected provider error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestUndecodableResponse(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "<html>bad gateway</html>")
	})

	_, err := p.ListRecords(context.Background(), "z1")
	if !dns.IsProviderError(err) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

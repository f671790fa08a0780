package dns

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"testing"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
)

func TestTypeFor(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"203.0.113.9", TypeA},
		{"::ffff:8.8.8.8", TypeA},
		{"2400:cb00::1", TypeAAAA},
	}
	for _, tt := range tests {
		if got := TypeFor(netip.MustParseAddr(tt.addr)); got != tt.want {
			t.Errorf("TypeFor(%s) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}

func TestFQDN(t *testing.T) {
	tests := []struct {
		name, zone, want string
	}{
		{"@", "example.com", "example.com"},
		{"home", "example.com", "home.example.com"},
		{"home.example.com", "example.com", "home.example.com"},
		{"home.example.com.", "example.com.", "home.example.com"},
		{"example.com", "example.com", "example.com"},
		{"home.other.org", "example.com", "home.other.org.example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FQDN(tt.name, tt.zone); got != tt.want {
				t.Errorf("FQDN(%q, %q) = %q, want %q", tt.name, tt.zone, got, tt.want)
			}
		})
	}
}

func TestErrorClassification(t *testing.T) {
	te := fmt.Errorf("wrapped: %w", &TransportError{Op: "list zones", Err: errors.New("connection refused")})
	pe := fmt.Errorf("wrapped: %w", &ProviderError{Op: "delete record", Messages: []string{"id mismatch"}})

	if !IsTransportError(te) || IsProviderError(te) {
		t.Errorf("misclassified transport error: %v", te)
	}
	if !IsProviderError(pe) || IsTransportError(pe) {
		t.Errorf("misclassified provider error: %v", pe)
	}
	if got := (&ProviderError{Op: "create record", Status: 400, Messages: []string{"bad ttl"}}).Error(); got != "create record: provider rejected request (status 400): bad ttl" {
		t.Errorf("unexpected message %q", got)
	}
}

// flakyProvider fails the first failures calls of every method with err.
type flakyProvider struct {
	failures int
	err      error
	calls    map[string]int
}

func (f *flakyProvider) call(name string) error {
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
	if f.calls[name] <= f.failures {
		return f.err
	}
	return nil
}

func (f *flakyProvider) ListZones(context.Context) ([]Zone, error) {
	if err := f.call("ListZones"); err != nil {
		return nil, err
	}
	return []Zone{{ID: "z1", Name: "example.com"}}, nil
}

func (f *flakyProvider) ListRecords(context.Context, string) ([]Record, error) {
	if err := f.call("ListRecords"); err != nil {
		return nil, err
	}
	return []Record{{ID: "r1"}}, nil
}

func (f *flakyProvider) CreateRecord(context.Context, string, Record) error {
	return f.call("CreateRecord")
}

func (f *flakyProvider) DeleteRecord(context.Context, string, string) error {
	return f.call("DeleteRecord")
}

var testBackoff = wait.Backoff{Steps: 3, Duration: time.Millisecond, Factor: 1}

func TestWithRetry_TransportErrors(t *testing.T) {
	flaky := &flakyProvider{failures: 2, err: &TransportError{Op: "test", Err: errors.New("timeout")}}
	p := WithRetry(flaky, testBackoff)
	ctx := context.Background()

	zones, err := p.ListZones(ctx)
	if err != nil {
		t.Fatalf("ListZones: %v", err)
	}
	if len(zones) != 1 || flaky.calls["ListZones"] != 3 {
		t.Errorf("expected success on third attempt, got %d zones after %d calls", len(zones), flaky.calls["ListZones"])
	}

	if _, err := p.ListRecords(ctx, "z1"); err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if err := p.DeleteRecord(ctx, "z1", "r1"); err != nil {
		t.Fatalf("DeleteRecord: %v", err)
	}

	// Creates are not retried.
	if err := p.CreateRecord(ctx, "z1", Record{}); err == nil {
		t.Fatal("expected create to fail without retry")
	}
	if flaky.calls["CreateRecord"] != 1 {
		t.Errorf("expected a single create attempt, got %d", flaky.calls["CreateRecord"])
	}
}

func TestWithRetry_ProviderErrorsAreFinal(t *testing.T) {
	flaky := &flakyProvider{failures: 5, err: &ProviderError{Op: "test", Messages: []string{"forbidden"}}}
	p := WithRetry(flaky, testBackoff)

	if _, err := p.ListZones(context.Background()); !IsProviderError(err) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if flaky.calls["ListZones"] != 1 {
		t.Errorf("expected no retries for provider errors, got %d calls", flaky.calls["ListZones"])
	}
}

func TestWithRetry_GivesUp(t *testing.T) {
	flaky := &flakyProvider{failures: 10, err: &TransportError{Op: "test", Err: errors.New("unreachable")}}
	p := WithRetry(flaky, testBackoff)

	err := p.DeleteRecord(context.Background(), "z1", "r1")
	if !IsTransportError(err) {
		t.Fatalf("expected last transport error, got %v", err)
	}
	if flaky.calls["DeleteRecord"] != testBackoff.Steps {
		t.Errorf("expected %d attempts, got %d", testBackoff.Steps, flaky.calls["DeleteRecord"])
	}
}

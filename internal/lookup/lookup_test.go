package lookup

import (
	"context"
	"net"
	"net/netip"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/miekg/dns"

	"github.com/yuriy-kovalchuk/yk-ddns/internal/address"
	"github.com/yuriy-kovalchuk/yk-ddns/internal/config"
)

// startServer serves the given zone data on a loopback UDP port and
// returns its address.
func startServer(t *testing.T, rrs ...string) string {
	t.Helper()

	data := map[string][]dns.RR{}
	for _, s := range rrs {
		rr, err := dns.NewRR(s)
		if err != nil {
			t.Fatalf("parsing %q: %v", s, err)
		}
		data[rr.Header().Name] = append(data[rr.Header().Name], rr)
	}

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	started := make(chan struct{})
	srv := &dns.Server{
		PacketConn:        pc,
		NotifyStartedFunc: func() { close(started) },
		Handler: dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
			resp := new(dns.Msg)
			resp.SetReply(req)
			q := req.Question[0]
			rrs, ok := data[strings.ToLower(q.Name)]
			if !ok {
				resp.Rcode = dns.RcodeNameError
			}
			for _, rr := range rrs {
				if rr.Header().Rrtype == q.Qtype {
					resp.Answer = append(resp.Answer, rr)
				}
			}
			_ = w.WriteMsg(resp)
		}),
	}
	go func() { _ = srv.ActivateAndServe() }()
	<-started
	t.Cleanup(func() { _ = srv.Shutdown() })

	return pc.LocalAddr().String()
}

func TestLookup(t *testing.T) {
	r := NewResolver(startServer(t,
		"home.example.com. 60 IN A 8.8.8.8",
		"home.example.com. 60 IN A 1.1.1.1",
		"home.example.com. 60 IN AAAA 2400:cb00::1",
	))

	tests := []struct {
		name  string
		qtype uint16
		want  []string
	}{
		{"home.example.com", dns.TypeA, []string{"8.8.8.8", "1.1.1.1"}},
		{"home.example.com", dns.TypeAAAA, []string{"2400:cb00::1"}},
		{"missing.example.com", dns.TypeA, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name+"/"+dns.TypeToString[tt.qtype], func(t *testing.T) {
			got, err := r.Lookup(context.Background(), tt.name, tt.qtype)
			if err != nil {
				t.Fatalf("Lookup: %v", err)
			}
			var gotStr []string
			for _, a := range got {
				gotStr = append(gotStr, a.String())
			}
			if diff := cmp.Diff(tt.want, gotStr); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewResolverFallback(t *testing.T) {
	r := NewResolver("")
	if r.Server == "" {
		t.Fatal("expected a default server")
	}
	if _, _, err := net.SplitHostPort(r.Server); err != nil {
		t.Errorf("server %q is not host:port: %v", r.Server, err)
	}
}

func TestCheck(t *testing.T) {
	r := NewResolver(startServer(t,
		"example.com. 60 IN A 8.8.8.8",
		"cdn.example.com. 60 IN A 104.16.0.1",
	))
	cfg := &config.Config{
		Zones: []config.ZoneRule{{
			Name: "example.com",
			Records: []config.RecordTemplate{
				{Name: "@", Family: config.FamilyAll},
				{Name: "cdn", Family: config.FamilyV4, Proxied: true},
				{Name: "v6", Family: config.FamilyV6},
			},
		}},
	}
	current := address.NewSet(netip.MustParseAddr("8.8.8.8"), netip.MustParseAddr("2400:cb00::1"))

	findings := Check(context.Background(), r, cfg, current)

	type row struct {
		Name, Type string
		OK         bool
	}
	var got []row
	for _, f := range findings {
		got = append(got, row{f.Name, f.Type, f.OK()})
	}
	want := []row{
		{"example.com", "A", true},
		{"example.com", "AAAA", false},
		{"cdn.example.com", "A", true},
		{"v6.example.com", "AAAA", false},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("findings mismatch (-want +got):\n%s", diff)
	}

	out := FormatFindings(findings)
	for _, s := range []string{"ok       A     example.com", "missing  AAAA  v6.example.com", "proxied  A     cdn.example.com"} {
		if !strings.Contains(out, s) {
			t.Errorf("output missing %q:\n%s", s, out)
		}
	}
}

func TestFormatFindingsEmpty(t *testing.T) {
	if got := FormatFindings(nil); !strings.Contains(got, "No managed records") {
		t.Errorf("got %q", got)
	}
}

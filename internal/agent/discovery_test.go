package agent

import (
	"context"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"
)

func deadURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(nil)
	u := srv.URL
	srv.Close()
	return u
}

func TestDiscovery_Candidates(t *testing.T) {
	d := NewDiscovery("")
	d.Getenv = func(k string) string {
		if k == EnvServerURL {
			return "http://env:1"
		}
		return ""
	}
	want := []string{
		DefaultURL,
		"http://env:1",
		"http://127.0.0.1:4096",
		"http://127.0.0.1:4097",
		"http://127.0.0.1:4098",
		"http://127.0.0.1:4099",
	}
	if got := d.Candidates(); !reflect.DeepEqual(got, want) {
		t.Errorf("Candidates = %v, want %v", got, want)
	}
}

func TestDiscovery_Check(t *testing.T) {
	f, srv := newFakeAgent(t)
	d := NewDiscovery(srv.URL)
	ctx := context.Background()

	if st := d.Check(ctx, srv.URL); !st.Running || st.State != StateAvailable || st.URL != srv.URL {
		t.Errorf("healthy Check = %+v", st)
	}
	f.mu.Lock()
	f.healthy = false
	f.mu.Unlock()
	if st := d.Check(ctx, srv.URL); st.Running || st.State != StateUnavailable {
		t.Errorf("unhealthy Check = %+v", st)
	}
	if st := d.Check(ctx, deadURL(t)); st.Running || st.State != StateUnknown {
		t.Errorf("dead Check = %+v", st)
	}
	if st := d.Check(ctx, ""); st.State != StateUnknown || st.URL != "" {
		t.Errorf("empty Check = %+v", st)
	}
}

func TestDiscovery_FallsThroughToEnv(t *testing.T) {
	_, srv := newFakeAgent(t)
	d := &Discovery{
		DefaultURL: deadURL(t),
		EnvVar:     EnvServerURL,
		Timeout:    time.Second,
		Getenv:     func(string) string { return srv.URL },
	}
	st := d.Discover(context.Background())
	if !st.Running || st.URL != srv.URL {
		t.Errorf("Discover = %+v, want env url", st)
	}
}

func TestDiscovery_NothingAnswers(t *testing.T) {
	d := &Discovery{DefaultURL: deadURL(t), Timeout: time.Second}
	st := d.Discover(context.Background())
	if st.Running || st.URL != "" || st.State != StateUnavailable {
		t.Errorf("Discover = %+v", st)
	}
	if _, ok := d.ServerURL(context.Background(), ""); ok {
		t.Error("ServerURL reported success with nothing listening")
	}
}

func TestDiscovery_ServerURLPrefersConfigured(t *testing.T) {
	_, configured := newFakeAgent(t)
	_, fallback := newFakeAgent(t)
	d := &Discovery{DefaultURL: fallback.URL, Timeout: time.Second}

	url, ok := d.ServerURL(context.Background(), configured.URL)
	if !ok || url != configured.URL {
		t.Errorf("ServerURL = %q, %v; want configured", url, ok)
	}
	url, ok = d.ServerURL(context.Background(), deadURL(t))
	if !ok || url != fallback.URL {
		t.Errorf("ServerURL = %q, %v; want fallback", url, ok)
	}
}

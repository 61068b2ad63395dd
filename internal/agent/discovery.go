package agent

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"
)

const (
	// DefaultURL is where an agent server listens unless configured otherwise.
	DefaultURL = "http://127.0.0.1:4096"
	// EnvServerURL names the environment variable that may supply a server URL.
	EnvServerURL = "OPENCODE_SERVER_URL"
)

// DefaultPorts are probed on localhost when neither the default nor the
// environment URL answers.
var DefaultPorts = []int{4096, 4097, 4098, 4099}

// State is the outcome of a health probe.
type State int

const (
	StateUnknown State = iota
	StateAvailable
	StateUnavailable
)

func (s State) String() string {
	switch s {
	case StateAvailable:
		return "available"
	case StateUnavailable:
		return "unavailable"
	}
	return "unknown"
}

// Status is the result of probing one endpoint or running discovery.
type Status struct {
	Running bool
	URL     string
	State   State
}

// Discovery finds a reachable agent server.
type Discovery struct {
	DefaultURL string
	EnvVar     string
	Ports      []int
	Timeout    time.Duration
	HTTPClient *http.Client
	Getenv     func(string) string
}

// NewDiscovery returns a Discovery with the standard probe order.
func NewDiscovery(defaultURL string) *Discovery {
	if defaultURL == "" {
		defaultURL = DefaultURL
	}
	return &Discovery{
		DefaultURL: defaultURL,
		EnvVar:     EnvServerURL,
		Ports:      append([]int(nil), DefaultPorts...),
		Timeout:    2 * time.Second,
	}
}

func (d *Discovery) httpClient() *http.Client {
	if d.HTTPClient != nil {
		return d.HTTPClient
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func (d *Discovery) getenv(key string) string {
	if d.Getenv != nil {
		return d.Getenv(key)
	}
	return os.Getenv(key)
}

// Check probes serverURL's health endpoint.
func (d *Discovery) Check(ctx context.Context, serverURL string) Status {
	if serverURL == "" {
		return Status{State: StateUnknown}
	}
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}
	ok, err := NewClient(serverURL, WithHTTPClient(d.httpClient())).Health(ctx)
	switch {
	case err != nil:
		return Status{URL: serverURL, State: StateUnknown}
	case ok:
		return Status{Running: true, URL: serverURL, State: StateAvailable}
	default:
		return Status{URL: serverURL, State: StateUnavailable}
	}
}

// Candidates returns the URLs Discover probes, in order.
func (d *Discovery) Candidates() []string {
	var urls []string
	if d.DefaultURL != "" {
		urls = append(urls, d.DefaultURL)
	}
	if d.EnvVar != "" {
		if env := d.getenv(d.EnvVar); env != "" {
			urls = append(urls, env)
		}
	}
	for _, p := range d.Ports {
		urls = append(urls, fmt.Sprintf("http://127.0.0.1:%d", p))
	}
	return urls
}

// Discover returns the first candidate that answers its health probe.
func (d *Discovery) Discover(ctx context.Context) Status {
	for _, u := range d.Candidates() {
		if ctx.Err() != nil {
			break
		}
		if st := d.Check(ctx, u); st.Running {
			return st
		}
	}
	return Status{State: StateUnavailable}
}

// ServerURL returns configured if it answers, otherwise the discovered URL.
// The bool is false when nothing answered.
func (d *Discovery) ServerURL(ctx context.Context, configured string) (string, bool) {
	if configured != "" {
		if st := d.Check(ctx, configured); st.Running {
			return configured, true
		}
	}
	st := d.Discover(ctx)
	return st.URL, st.Running
}

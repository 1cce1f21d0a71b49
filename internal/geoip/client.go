package geoip

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

// ErrLookupFailed wraps an upstream "fail" status or transport error.
var ErrLookupFailed = errors.New("geoip: lookup failed")

// Position is the subset of the geolocation payload the locator consumes.
type Position struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	City    string  `json:"city"`
	Region  string  `json:"regionName"`
	Country string  `json:"country"`
	IP      string  `json:"query"`
}

type payload struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	City    string  `json:"city"`
	Region  string  `json:"regionName"`
	Country string  `json:"country"`
	Query   string  `json:"query"`
}

type Client struct {
	baseURL string
	http    *retryablehttp.Client
	limiter *rate.Limiter
}

// NewClient talks to an ip-api.com style endpoint. The free tier caps at
// 45 requests per minute, so lookups are rate limited client-side.
func NewClient(baseURL string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = 900 * time.Millisecond
	rc.RetryMax = 2
	rc.HTTPClient.Timeout = 10 * time.Second
	rc.Logger = nil

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    rc,
		limiter: rate.NewLimiter(rate.Every(time.Minute/45), 5),
	}
}

// Lookup resolves an IP to coordinates. An empty ip asks the service to
// geolocate the request's own vantage point (used for private/loopback
// callers that carry no routable address).
func (c *Client) Lookup(ctx context.Context, ip string) (*Position, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := c.baseURL + "/json/"
	if ip != "" {
		u += ip
	}
	u += "?fields=status,message,lat,lon,city,regionName,country,query"

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: status %d", ErrLookupFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: bad payload: %v", ErrLookupFailed, err)
	}
	if p.Status != "success" {
		return nil, fmt.Errorf("%w: %s", ErrLookupFailed, p.Message)
	}
	return &Position{
		Lat: p.Lat, Lon: p.Lon,
		City: p.City, Region: p.Region, Country: p.Country,
		IP: p.Query,
	}, nil
}

// NormalizeIP strips the IPv6-mapped prefix ("::ffff:1.2.3.4" -> "1.2.3.4")
// and port suffixes, returning a bare address or "" when unparseable.
func NormalizeIP(remote string) string {
	ip := strings.TrimSpace(remote)
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	ip = strings.TrimPrefix(ip, "::ffff:")
	if net.ParseIP(ip) == nil {
		return ""
	}
	return ip
}

// IsPrivate reports whether the address is loopback, link-local or RFC1918.
// These carry no geographic signal, so the lookup omits them.
func IsPrivate(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return true
	}
	return parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsLinkLocalUnicast() || parsed.IsUnspecified()
}

// ClientIP extracts the caller's address from X-Forwarded-For (first hop)
// or the connection's remote address.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if ip := NormalizeIP(first); ip != "" {
			return ip
		}
	}
	return NormalizeIP(r.RemoteAddr)
}

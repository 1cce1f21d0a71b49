package geoip

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/json/"))
		w.Write([]byte(`{"status":"success","lat":28.6139,"lon":77.209,"city":"New Delhi","regionName":"Delhi","country":"India","query":"103.27.9.44"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	pos, err := c.Lookup(context.Background(), "103.27.9.44")
	require.NoError(t, err)
	assert.Equal(t, 28.6139, pos.Lat)
	assert.Equal(t, 77.209, pos.Lon)
	assert.Equal(t, "New Delhi", pos.City)
	assert.Equal(t, "103.27.9.44", pos.IP)
}

func TestLookupFailStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"fail","message":"reserved range","query":"127.0.0.1"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Lookup(context.Background(), "127.0.0.1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLookupFailed)
	assert.Contains(t, err.Error(), "reserved range")
}

func TestLookupOmitsIPWhenEmpty(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"status":"success","lat":1,"lon":2,"query":"8.8.8.8"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Lookup(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "/json/", gotPath, "empty ip lets the service pick its own vantage point")
}

func TestNormalizeIP(t *testing.T) {
	assert.Equal(t, "203.0.113.7", NormalizeIP("::ffff:203.0.113.7"))
	assert.Equal(t, "203.0.113.7", NormalizeIP("203.0.113.7:51234"))
	assert.Equal(t, "2001:db8::1", NormalizeIP("[2001:db8::1]:443"))
	assert.Equal(t, "", NormalizeIP("not-an-ip"))
}

func TestIsPrivate(t *testing.T) {
	assert.True(t, IsPrivate("127.0.0.1"))
	assert.True(t, IsPrivate("10.1.2.3"))
	assert.True(t, IsPrivate("192.168.0.5"))
	assert.True(t, IsPrivate("::1"))
	assert.False(t, IsPrivate("8.8.8.8"))
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:9999"
	r.Header.Set("X-Forwarded-For", "::ffff:198.51.100.2, 10.0.0.1")
	assert.Equal(t, "198.51.100.2", ClientIP(r))

	r.Header.Del("X-Forwarded-For")
	assert.Equal(t, "10.0.0.1", ClientIP(r))
}

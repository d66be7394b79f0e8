package geo

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"log/slog"

	"github.com/stretchr/testify/assert"

	"phishly/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestResolver(apiURL string) *Resolver {
	cfg := &config.Config{
		GeoAPIURL:            apiURL,
		GeoAPITimeoutSeconds: 2,
		GeoCacheTTLSeconds:   60,
	}
	return NewResolver(cfg, testLogger())
}

func TestResolvePrivateRanges(t *testing.T) {
	r := newTestResolver("http://127.0.0.1:1/json")

	for _, ip := range []string{"10.0.0.1", "172.16.5.5", "192.168.1.1", "127.0.0.1", "::1", "fe80::1"} {
		t.Run(ip, func(t *testing.T) {
			location := r.Resolve(ip)
			assert.Equal(t, CountryLocal, location.Country)
			assert.Equal(t, CityPrivate, location.City)
		})
	}
}

func TestResolveInvalidAddress(t *testing.T) {
	r := newTestResolver("http://127.0.0.1:1/json")

	location := r.Resolve("not-an-ip")
	assert.Equal(t, CountryUnknown, location.Country)
	assert.Equal(t, CityUnknown, location.City)
}

func TestResolveRemote(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"status":"success","country":"Netherlands","countryCode":"NL","city":"Amsterdam"}`)
	}))
	defer srv.Close()

	r := newTestResolver(srv.URL)

	location := r.Resolve("203.0.113.10")
	assert.Equal(t, "Netherlands", location.Country)
	assert.Equal(t, "Amsterdam", location.City)

	// Second lookup for the same address hits the cache, not the service.
	r.Resolve("203.0.113.10")
	assert.Equal(t, int64(1), calls.Load())
}

func TestResolveRemoteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprint(w, `{"status":"fail"}`)
	}))
	defer srv.Close()

	r := newTestResolver(srv.URL)

	location := r.Resolve("203.0.113.11")
	assert.Equal(t, CountryUnknown, location.Country)
	assert.Equal(t, CityUnknown, location.City)
}

func TestResolveRemoteCountryCodeFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprint(w, `{"status":"success","countryCode":"DE","city":""}`)
	}))
	defer srv.Close()

	r := newTestResolver(srv.URL)

	location := r.Resolve("203.0.113.12")
	assert.Equal(t, "Germany", location.Country)
	assert.Equal(t, CityUnknown, location.City)
}

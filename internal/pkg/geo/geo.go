// Package geo resolves client addresses to a country and city. Lookups hit
// the local GeoLite2 database when one is configured and fall back to an
// ip-api.com style HTTP service; results are cached per address for the
// process lifetime to bound outbound call volume against the rate-limited
// resolver.
package geo

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge/cache"
	"github.com/oschwald/geoip2-golang"
	"github.com/pariz/gountries"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"phishly/internal/config"
)

// Location is the resolved geolocation of one address. Both fields are empty
// when nothing could be resolved.
type Location struct {
	Country string
	City    string
}

// Placeholder values for addresses that cannot be resolved.
const (
	CountryLocal   = "Local"
	CityPrivate    = "Private Network"
	CountryUnknown = "Unknown"
	CityUnknown    = "Unknown"
)

// Resolver performs cached geolocation lookups.
type Resolver struct {
	logger    *slog.Logger
	geoDB     *geoip2.Reader
	client    *http.Client
	apiURL    string
	countries *gountries.Query
	caser     cases.Caser
	cache     *cache.Cache[string, Location]
}

// NewResolver builds a resolver from configuration. The GeoLite2 database is
// optional; when the file is missing every lookup goes through the HTTP
// fallback.
func NewResolver(cfg *config.Config, logger *slog.Logger) *Resolver {
	r := &Resolver{
		logger: logger,
		client: &http.Client{
			Timeout: time.Duration(cfg.GeoAPITimeoutSeconds) * time.Second,
		},
		apiURL:    strings.TrimRight(cfg.GeoAPIURL, "/"),
		countries: gountries.New(),
		caser:     cases.Upper(language.AmericanEnglish),
	}

	if cfg.GeoDBPath != "" {
		if _, err := os.Stat(cfg.GeoDBPath); err == nil {
			db, err := geoip2.Open(cfg.GeoDBPath)
			if err != nil {
				logger.Warn("Failed to open GeoLite2 database, using HTTP fallback only",
					slog.String("path", cfg.GeoDBPath),
					slog.Any("error", err))
			} else {
				r.geoDB = db
			}
		} else {
			logger.Info("GeoLite2 database not found, using HTTP fallback only",
				slog.String("path", cfg.GeoDBPath),
				slog.String("hint", "Download from https://www.maxmind.com/en/geolite2/signup"))
		}
	}

	ttl := time.Duration(cfg.GeoCacheTTLSeconds) * time.Second
	r.cache = cache.NewCache[string, Location](logger, ttl, r.lookup)

	return r
}

// Close releases the GeoLite2 reader if one is open.
func (r *Resolver) Close() {
	if r.geoDB != nil {
		r.geoDB.Close()
	}
}

// Resolve returns the location for an address. Private and loopback ranges
// short-circuit to a local placeholder without any lookup; every failure mode
// degrades to Unknown rather than propagating.
func (r *Resolver) Resolve(ipAddress string) Location {
	ip := net.ParseIP(ipAddress)
	if ip == nil {
		return Location{Country: CountryUnknown, City: CityUnknown}
	}

	if isPrivate(ip) {
		return Location{Country: CountryLocal, City: CityPrivate}
	}

	location, err := r.cache.Get(ipAddress)
	if err != nil {
		r.logger.Warn("Geolocation lookup failed",
			slog.String("ip_address", ipAddress),
			slog.Any("error", err))
		return Location{Country: CountryUnknown, City: CityUnknown}
	}
	return location
}

// lookup is the cache fetch function: GeoLite2 first, HTTP fallback second.
func (r *Resolver) lookup(ipAddress string) (Location, error) {
	ip := net.ParseIP(ipAddress)
	if ip == nil {
		return Location{}, fmt.Errorf("invalid ip address: %s", ipAddress)
	}

	if r.geoDB != nil {
		if location, ok := r.lookupLocal(ip); ok {
			return location, nil
		}
	}

	return r.lookupRemote(ipAddress)
}

func (r *Resolver) lookupLocal(ip net.IP) (Location, bool) {
	record, err := r.geoDB.City(ip)
	if err != nil || record.Country.IsoCode == "" {
		return Location{}, false
	}

	location := Location{
		Country: r.countryName(record.Country.IsoCode),
		City:    record.City.Names["en"],
	}
	if location.City == "" {
		location.City = CityUnknown
	}
	return location, true
}

// geoAPIResponse mirrors the relevant fields of an ip-api.com response.
type geoAPIResponse struct {
	Status      string `json:"status"`
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
	City        string `json:"city"`
}

func (r *Resolver) lookupRemote(ipAddress string) (Location, error) {
	url := fmt.Sprintf("%s/%s?fields=status,country,countryCode,city", r.apiURL, ipAddress)
	resp, err := r.client.Get(url)
	if err != nil {
		return Location{}, fmt.Errorf("geolocation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("geolocation request returned status %d", resp.StatusCode)
	}

	var payload geoAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Location{}, fmt.Errorf("failed to decode geolocation response: %w", err)
	}
	if payload.Status != "success" {
		return Location{}, fmt.Errorf("geolocation lookup unsuccessful for %s", ipAddress)
	}

	location := Location{
		Country: payload.Country,
		City:    payload.City,
	}
	if location.Country == "" && payload.CountryCode != "" {
		location.Country = r.countryName(payload.CountryCode)
	}
	if location.Country == "" {
		location.Country = CountryUnknown
	}
	if location.City == "" {
		location.City = CityUnknown
	}
	return location, nil
}

// countryName maps an ISO code to its common English name, falling back to
// the upper-cased code itself.
func (r *Resolver) countryName(isoCode string) string {
	country, err := r.countries.FindCountryByAlpha(isoCode)
	if err != nil {
		return r.caser.String(isoCode)
	}
	return country.Name.Common
}

func isPrivate(ip net.IP) bool {
	return ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsUnspecified()
}

package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oschwald/geoip2-golang"
	"go.uber.org/zap"

	"xanalytics/models"
)

const geoFields = "status,message,country,countryCode,city,lat,lon"

// ErrGeoNotFound is returned when neither the local database nor the API
// know the address.
var ErrGeoNotFound = errors.New("geolocation not found")

// GeoResolver looks an IP up in a local MaxMind database first and falls back
// to an ip-api.com compatible HTTP endpoint.
type GeoResolver struct {
	db         *geoip2.Reader
	apiURL     string
	httpClient *http.Client
}

// NewGeoResolver never fails on a missing database; it degrades to API-only mode.
func NewGeoResolver(dbPath, apiURL string, timeout time.Duration, logger *zap.Logger) *GeoResolver {
	var db *geoip2.Reader

	if dbPath != "" {
		var err error
		db, err = geoip2.Open(dbPath)
		if err != nil {
			logger.Warn("Could not open GeoIP database, using API fallback only", zap.String("path", dbPath), zap.Error(err))
			db = nil
		}
	}

	return &GeoResolver{
		db:     db,
		apiURL: strings.TrimRight(apiURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// HasDatabase reports whether a local database is loaded.
func (g *GeoResolver) HasDatabase() bool {
	return g != nil && g.db != nil
}

func (g *GeoResolver) Close() {
	if g != nil && g.db != nil {
		g.db.Close()
	}
}

// Lookup resolves one IP. The caller bounds the call with ctx.
func (g *GeoResolver) Lookup(ctx context.Context, ipStr string) (*models.Location, error) {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return nil, fmt.Errorf("invalid ip %q", ipStr)
	}

	if g.db != nil {
		record, err := g.db.City(ip)
		if err == nil && record.Country.IsoCode != "" {
			return &models.Location{
				Country:     record.Country.Names["en"],
				CountryCode: record.Country.IsoCode,
				City:        record.City.Names["en"],
				Lat:         record.Location.Latitude,
				Lon:         record.Location.Longitude,
			}, nil
		}
	}

	if g.apiURL == "" {
		return nil, ErrGeoNotFound
	}
	return g.fetchFromAPI(ctx, ipStr)
}

type ipAPIResponse struct {
	Status      string  `json:"status"`
	Message     string  `json:"message"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	City        string  `json:"city"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}

func (g *GeoResolver) fetchFromAPI(ctx context.Context, ip string) (*models.Location, error) {
	endpoint := fmt.Sprintf("%s/json/%s?fields=%s", g.apiURL, url.PathEscape(ip), geoFields)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create geo request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geo api error: %d", resp.StatusCode)
	}

	var apiResp ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode geo response: %w", err)
	}

	if apiResp.Status != "success" {
		return nil, fmt.Errorf("%w: %s %s", ErrGeoNotFound, apiResp.Status, apiResp.Message)
	}

	return &models.Location{
		Country:     apiResp.Country,
		CountryCode: apiResp.CountryCode,
		City:        apiResp.City,
		Lat:         apiResp.Lat,
		Lon:         apiResp.Lon,
	}, nil
}

package places

import (
	"net/http"
	"strings"
	"time"

	"github.com/spigell/leadscout/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	PlacesURL  = "https://places.googleapis.com/v1"
	GeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"
	userAgent  = "spigell/leadscout"

	DefaultMaxPages       = 3
	DefaultPageDelay      = 2 * time.Second
	DefaultBiasDelta      = 0.5
	DefaultMaxResultCount = 20
	DefaultRateLimitRPS   = 5.0
)

var fieldMask = []string{
	"places.id",
	"places.displayName",
	"places.formattedAddress",
	"places.location",
	"places.primaryType",
	"places.types",
	"places.businessStatus",
	"places.googleMapsUri",
	"places.websiteUri",
	"places.nationalPhoneNumber",
	"places.internationalPhoneNumber",
	"places.rating",
	"places.userRatingCount",
	"nextPageToken",
}

type Options struct {
	APIKey         string
	PlacesURL      string
	GeocodeURL     string
	RateLimitRPS   float64
	MaxPages       int
	PageDelay      time.Duration
	BiasDelta      float64
	MaxResultCount int
}

// Client searches Google Places. Every HTTP call waits on a shared rate limiter.
type Client struct {
	apiKey     string
	placesURL  string
	geocodeURL string
	maxPages   int
	pageDelay  time.Duration
	biasDelta  float64
	maxResults int

	limiter    *rate.Limiter
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
}

func New(opts Options, log *zap.Logger) *Client {
	if opts.PlacesURL == "" {
		opts.PlacesURL = PlacesURL
	}
	if opts.GeocodeURL == "" {
		opts.GeocodeURL = GeocodeURL
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	if opts.PageDelay <= 0 {
		opts.PageDelay = DefaultPageDelay
	}
	if opts.BiasDelta <= 0 {
		opts.BiasDelta = DefaultBiasDelta
	}
	if opts.MaxResultCount <= 0 {
		opts.MaxResultCount = DefaultMaxResultCount
	}
	if opts.RateLimitRPS <= 0 {
		opts.RateLimitRPS = DefaultRateLimitRPS
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		placesURL:  strings.TrimRight(opts.PlacesURL, "/"),
		geocodeURL: opts.GeocodeURL,
		maxPages:   opts.MaxPages,
		pageDelay:  opts.PageDelay,
		biasDelta:  opts.BiasDelta,
		maxResults: opts.MaxResultCount,
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimitRPS), 1),
		logger:     logger.OrNop(log),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		UserAgent:  userAgent,
	}
}

package places

import (
	"context"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spigell/leadscout/internal/candidates"
	"github.com/spigell/leadscout/internal/utils"
	"go.uber.org/zap"
)

const SearchTextPath = "/places:searchText"

type rectangle struct {
	MinLatitude  float64 `json:"minLatitude"`
	MaxLatitude  float64 `json:"maxLatitude"`
	MinLongitude float64 `json:"minLongitude"`
	MaxLongitude float64 `json:"maxLongitude"`
}

type locationRestriction struct {
	Rectangle rectangle `json:"rectangle"`
}

type searchTextRequest struct {
	TextQuery           string               `json:"textQuery"`
	MaxResultCount      int                  `json:"maxResultCount"`
	PageToken           string               `json:"pageToken,omitempty"`
	LocationRestriction *locationRestriction `json:"locationRestriction,omitempty"`
}

type searchTextResponse struct {
	Places        []map[string]any `json:"places"`
	NextPageToken string           `json:"nextPageToken"`
}

// SearchRaw runs a text search and follows result pages. On a transport
// failure it returns StatusError together with the records collected so far.
func (c *Client) SearchRaw(ctx context.Context, term string, near *candidates.LatLng) ([]map[string]any, candidates.Status) {
	payload := searchTextRequest{
		TextQuery:      term,
		MaxResultCount: c.maxResults,
	}
	if near != nil {
		payload.LocationRestriction = &locationRestriction{Rectangle: rectangle{
			MinLatitude:  near.Latitude - c.biasDelta,
			MaxLatitude:  near.Latitude + c.biasDelta,
			MinLongitude: near.Longitude - c.biasDelta,
			MaxLongitude: near.Longitude + c.biasDelta,
		}}
	}

	headers := map[string]string{"X-Goog-FieldMask": strings.Join(fieldMask, ",")}
	url := c.placesURL + SearchTextPath

	var records []map[string]any
	for page := 0; page < c.maxPages; page++ {
		var resp searchTextResponse
		if err := c.postJSON(ctx, url, payload, headers, &resp); err != nil {
			c.logger.Error("places search failed",
				zap.String("term", term),
				zap.Int("page", page+1),
				zap.Error(err),
			)
			return records, candidates.TermStatus(true, len(records))
		}

		records = append(records, resp.Places...)
		c.logger.Debug("got places page",
			zap.String("term", term),
			zap.Int("page", page+1),
			zap.Int("places", len(resp.Places)),
		)

		if resp.NextPageToken == "" {
			break
		}
		if page+1 < c.maxPages {
			if err := utils.WaitFor(ctx, c.pageDelay); err != nil {
				return records, candidates.TermStatus(true, len(records))
			}
		}
		payload.PageToken = resp.NextPageToken
	}

	return records, candidates.TermStatus(false, len(records))
}

// Search is SearchRaw with every record decoded into a candidate.
func (c *Client) Search(ctx context.Context, term string, near *candidates.LatLng) candidates.SearchTermResult {
	raw, status := c.SearchRaw(ctx, term, near)

	records := make([]candidates.Candidate, 0, len(raw))
	for _, r := range raw {
		candidate, err := Decode(r)
		if err != nil {
			c.logger.Warn("skipping undecodable place", zap.String("term", term), zap.Error(err))
			continue
		}
		records = append(records, *candidate)
	}

	// Undecodable places do not count as results.
	status = candidates.TermStatus(status == candidates.StatusError, len(records))
	return candidates.SearchTermResult{Term: term, Records: records, Status: status}
}

type place struct {
	ID          string `mapstructure:"id"`
	DisplayName struct {
		Text string `mapstructure:"text"`
	} `mapstructure:"displayName"`
	FormattedAddress string             `mapstructure:"formattedAddress"`
	Location         *candidates.LatLng `mapstructure:"location"`
	Types            []string           `mapstructure:"types"`
	BusinessStatus   string             `mapstructure:"businessStatus"`
	GoogleMapsURI    string             `mapstructure:"googleMapsUri"`
	WebsiteURI       string             `mapstructure:"websiteUri"`
	NationalPhone    string             `mapstructure:"nationalPhoneNumber"`
	International    string             `mapstructure:"internationalPhoneNumber"`
	Rating           float64            `mapstructure:"rating"`
	UserRatingCount  int                `mapstructure:"userRatingCount"`
}

// Decode converts a Places API record into a candidate.
func Decode(raw map[string]any) (*candidates.Candidate, error) {
	var p place
	cfg := &mapstructure.DecoderConfig{
		Result:           &p,
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode place: %w", err)
	}

	return &candidates.Candidate{
		ID:              p.ID,
		Name:            p.DisplayName.Text,
		Address:         p.FormattedAddress,
		Location:        p.Location,
		Phone:           candidates.Phone{National: p.NationalPhone, International: p.International},
		Website:         p.WebsiteURI,
		MapsURL:         p.GoogleMapsURI,
		Rating:          p.Rating,
		UserRatingCount: p.UserRatingCount,
		Types:           p.Types,
		BusinessStatus:  p.BusinessStatus,
	}, nil
}

package candidates

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// StatusClosedPermanently is the operating status of places that no longer trade.
const StatusClosedPermanently = "CLOSED_PERMANENTLY"

type LatLng struct {
	Latitude  float64 `json:"latitude" bson:"latitude" mapstructure:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude" mapstructure:"longitude"`
}

type Phone struct {
	National      string `json:"national,omitempty" bson:"national,omitempty" mapstructure:"national"`
	International string `json:"international,omitempty" bson:"international,omitempty" mapstructure:"international"`
}

// Candidate is a discovered organization that may buy the seller's product.
type Candidate struct {
	ID              string   `json:"id" bson:"id" mapstructure:"id"`
	Name            string   `json:"name" bson:"name" mapstructure:"name"`
	Address         string   `json:"address,omitempty" bson:"address,omitempty" mapstructure:"address"`
	Location        *LatLng  `json:"location,omitempty" bson:"location,omitempty" mapstructure:"location"`
	Phone           Phone    `json:"phone" bson:"phone" mapstructure:"phone"`
	Website         string   `json:"website,omitempty" bson:"website,omitempty" mapstructure:"website"`
	MapsURL         string   `json:"google_maps_url,omitempty" bson:"google_maps_url,omitempty" mapstructure:"google_maps_url"`
	Rating          float64  `json:"rating,omitempty" bson:"rating,omitempty" mapstructure:"rating"`
	UserRatingCount int      `json:"user_rating_count,omitempty" bson:"user_rating_count,omitempty" mapstructure:"user_rating_count"`
	Types           []string `json:"types,omitempty" bson:"types,omitempty" mapstructure:"types"`
	BusinessStatus  string   `json:"status,omitempty" bson:"status,omitempty" mapstructure:"status"`
}

// IsClosed reports whether the candidate stopped trading for good.
func (c *Candidate) IsClosed() bool {
	return strings.EqualFold(strings.TrimSpace(c.BusinessStatus), StatusClosedPermanently)
}

// Label is a short human readable reference used in logs and prompts.
func (c *Candidate) Label() string {
	if name := strings.TrimSpace(c.Name); name != "" {
		return name
	}
	return c.ID
}

// PrimaryPhone returns the national number, falling back to the international one.
func (c *Candidate) PrimaryPhone() string {
	if national := strings.TrimSpace(c.Phone.National); national != "" {
		return national
	}
	return strings.TrimSpace(c.Phone.International)
}

type Candidates struct {
	Items []*Candidate
}

func (c *Candidates) Len() int {
	return len(c.Items)
}

func (c *Candidates) FindByID(id string) *Candidate {
	for _, candidate := range c.Items {
		if candidate.ID == id {
			return candidate
		}
	}
	return nil
}

func (c *Candidates) IDs() []string {
	ids := make([]string, 0, len(c.Items))
	for _, candidate := range c.Items {
		ids = append(ids, candidate.ID)
	}
	return ids
}

// Names returns candidate labels in list order.
func (c *Candidates) Names() []string {
	names := make([]string, 0, len(c.Items))
	for _, candidate := range c.Items {
		names = append(names, candidate.Label())
	}
	return names
}

// DumpToTmpFile writes the list as indented JSON into a temporary file and returns its name.
func (c *Candidates) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "candidates_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c.Items); err != nil {
		return "", fmt.Errorf("encode candidates: %w", err)
	}
	return file.Name(), nil
}

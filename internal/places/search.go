package places

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// defaultRadiusM applies when a search omits the radius.
const defaultRadiusM = 2000

// Validate normalizes the query in place and rejects out-of-range
// values before any provider call.
func (q *PlaceQuery) Validate() error {
	q.FreeText = strings.TrimSpace(q.FreeText)
	q.Category = strings.TrimSpace(q.Category)

	if q.RadiusM == 0 {
		q.RadiusM = defaultRadiusM
	}
	if q.RadiusM < 0 {
		return fmt.Errorf("%w: radius_meters must be positive", ErrInvalidQuery)
	}
	if q.Center.Lat < -90 || q.Center.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidQuery, q.Center.Lat)
	}
	if q.Center.Lng < -180 || q.Center.Lng > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidQuery, q.Center.Lng)
	}
	if q.MinRating != nil && (*q.MinRating < 0 || *q.MinRating > 5) {
		return fmt.Errorf("%w: min_rating %v out of range", ErrInvalidQuery, *q.MinRating)
	}
	if q.FreeText == "" && q.Category == "" {
		return fmt.Errorf("%w: free_text or category is required", ErrInvalidQuery)
	}
	return nil
}

// Provider wire shapes. These never escape the package.
type wireSearchResponse struct {
	Status       string      `json:"status"`
	ErrorMessage string      `json:"error_message"`
	Results      []wirePlace `json:"results"`
}

type wirePlace struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	FormattedAddress string   `json:"formatted_address"`
	Vicinity         string   `json:"vicinity"`
	Rating           *float64 `json:"rating"`
	UserRatingsTotal int      `json:"user_ratings_total"`
	PriceLevel       *int     `json:"price_level"`
	OpeningHours     *struct {
		OpenNow *bool `json:"open_now"`
	} `json:"opening_hours"`
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	Photos []struct {
		PhotoReference string `json:"photo_reference"`
	} `json:"photos"`
}

// Search finds places matching the query. FreeText drives a text
// search; a bare category uses nearby search. Open-now and min-rating
// are enforced locally because the provider does not guarantee either.
// Provider rank order is preserved; an empty result is not an error.
func (c *Client) Search(ctx context.Context, query PlaceQuery) ([]PlaceCard, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	path, params := searchRequest(query)
	var resp wireSearchResponse
	if err := c.do(ctx, path, params, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "OK" && resp.Status != "ZERO_RESULTS" {
		return nil, fmt.Errorf("%w: status %s: %s", ErrUpstream, resp.Status, resp.ErrorMessage)
	}

	cards := make([]PlaceCard, 0, len(resp.Results))
	for _, wp := range resp.Results {
		card := c.toCard(wp)
		if query.OpenNow && (card.OpenNow == nil || !*card.OpenNow) {
			continue
		}
		if query.MinRating != nil && (card.Rating == nil || *card.Rating < *query.MinRating) {
			continue
		}
		cards = append(cards, card)
	}

	c.logger.Debug("places search",
		"returned", len(resp.Results),
		"after_filters", len(cards))
	return cards, nil
}

// searchRequest selects the provider endpoint and builds its params.
func searchRequest(q PlaceQuery) (string, url.Values) {
	params := url.Values{}
	params.Set("location", fmt.Sprintf("%g,%g", q.Center.Lat, q.Center.Lng))
	params.Set("radius", strconv.Itoa(q.RadiusM))
	if q.OpenNow {
		params.Set("opennow", "true")
	}

	if q.FreeText != "" {
		keyword := q.FreeText
		if q.Category != "" {
			keyword += " " + q.Category
		}
		params.Set("query", keyword)
		return "/place/textsearch/json", params
	}

	params.Set("type", q.Category)
	return "/place/nearbysearch/json", params
}

// toCard normalizes one provider result.
func (c *Client) toCard(wp wirePlace) PlaceCard {
	card := PlaceCard{
		PlaceID:     wp.PlaceID,
		Name:        wp.Name,
		Address:     wp.FormattedAddress,
		Rating:      wp.Rating,
		RatingCount: wp.UserRatingsTotal,
		PriceLevel:  wp.PriceLevel,
		Location:    LatLng{Lat: wp.Geometry.Location.Lat, Lng: wp.Geometry.Location.Lng},
		MapsURL:     "https://www.google.com/maps/place/?q=place_id:" + url.QueryEscape(wp.PlaceID),
	}
	// Nearby search carries the address in vicinity instead.
	if card.Address == "" {
		card.Address = wp.Vicinity
	}
	if wp.OpeningHours != nil {
		card.OpenNow = wp.OpeningHours.OpenNow
	}
	if len(wp.Photos) > 0 && wp.Photos[0].PhotoReference != "" {
		photo := url.Values{}
		photo.Set("maxwidth", "600")
		photo.Set("photo_reference", wp.Photos[0].PhotoReference)
		photo.Set("key", c.apiKey)
		card.PhotoURL = c.baseURL + "/place/photo?" + photo.Encode()
	}
	return card
}

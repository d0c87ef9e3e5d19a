// Package places searches, describes and routes to locations through
// the Google Maps web services. Provider responses are normalized at
// this boundary; no provider field names leak past it.
package places

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PlaceQuery is a validated search request. FreeText drives the text
// search; Category narrows it to a provider place type. OpenNow and
// MinRating are applied as post-filters on the provider's results.
type PlaceQuery struct {
	FreeText  string   `json:"free_text"`
	Category  string   `json:"category,omitempty"`
	Center    LatLng   `json:"center"`
	RadiusM   int      `json:"radius_meters"`
	OpenNow   bool     `json:"open_now_filter,omitempty"`
	MinRating *float64 `json:"min_rating,omitempty"`
}

// PlaceCard is one normalized search result. Optional provider fields
// stay nil when absent; a missing open_now is unknown, not closed.
type PlaceCard struct {
	PlaceID     string   `json:"place_id"`
	Name        string   `json:"name"`
	Address     string   `json:"formatted_address"`
	Rating      *float64 `json:"rating,omitempty"`
	RatingCount int      `json:"rating_count,omitempty"`
	PriceLevel  *int     `json:"price_level,omitempty"`
	OpenNow     *bool    `json:"open_now,omitempty"`
	Location    LatLng   `json:"location"`
	MapsURL     string   `json:"maps_url"`
	PhotoURL    string   `json:"photo_url,omitempty"`
}

// PlaceDetail is the normalized detail lookup result. OpeningHours
// keeps the provider's weekday order.
type PlaceDetail struct {
	PlaceID      string   `json:"place_id"`
	Name         string   `json:"name"`
	Address      string   `json:"formatted_address,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	Website      string   `json:"website,omitempty"`
	OpeningHours []string `json:"opening_hours"`
}

// DirectionsResult is the normalized best route between two points.
type DirectionsResult struct {
	DistanceText string `json:"distance_text"`
	DurationText string `json:"duration_text"`
	Polyline     string `json:"polyline"`
}

package places

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

type wireDetailsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Result       struct {
		PlaceID          string `json:"place_id"`
		Name             string `json:"name"`
		FormattedAddress string `json:"formatted_address"`
		Phone            string `json:"formatted_phone_number"`
		Website          string `json:"website"`
		OpeningHours     struct {
			WeekdayText []string `json:"weekday_text"`
		} `json:"opening_hours"`
	} `json:"result"`
}

// detailsFields limits the provider response to what PlaceDetail
// carries; details requests are billed per field group.
const detailsFields = "place_id,name,formatted_address,formatted_phone_number,website,opening_hours/weekday_text"

// Details looks up one place by its provider ID.
func (c *Client) Details(ctx context.Context, placeID string) (*PlaceDetail, error) {
	placeID = strings.TrimSpace(placeID)
	if placeID == "" {
		return nil, fmt.Errorf("%w: place_id is required", ErrInvalidQuery)
	}

	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", detailsFields)

	var resp wireDetailsResponse
	if err := c.do(ctx, "/place/details/json", params, &resp); err != nil {
		return nil, err
	}
	switch resp.Status {
	case "OK":
	case "NOT_FOUND", "INVALID_REQUEST", "ZERO_RESULTS":
		return nil, fmt.Errorf("%w: %s", ErrNotFound, placeID)
	default:
		return nil, fmt.Errorf("%w: status %s: %s", ErrUpstream, resp.Status, resp.ErrorMessage)
	}

	hours := resp.Result.OpeningHours.WeekdayText
	if hours == nil {
		hours = []string{}
	}
	return &PlaceDetail{
		PlaceID:      resp.Result.PlaceID,
		Name:         resp.Result.Name,
		Address:      resp.Result.FormattedAddress,
		Phone:        resp.Result.Phone,
		Website:      resp.Result.Website,
		OpeningHours: hours,
	}, nil
}

type wireDirectionsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Routes       []struct {
		OverviewPolyline struct {
			Points string `json:"points"`
		} `json:"overview_polyline"`
		Legs []struct {
			Distance struct {
				Text string `json:"text"`
			} `json:"distance"`
			Duration struct {
				Text string `json:"text"`
			} `json:"duration"`
		} `json:"legs"`
	} `json:"routes"`
}

// travelModes are the provider's accepted mode values.
var travelModes = map[string]bool{
	"driving": true, "walking": true, "bicycling": true, "transit": true,
}

// Directions returns the provider's best route between two free-form
// endpoints. mode defaults to driving.
func (c *Client) Directions(ctx context.Context, origin, destination, mode string) (*DirectionsResult, error) {
	origin = strings.TrimSpace(origin)
	destination = strings.TrimSpace(destination)
	if origin == "" || destination == "" {
		return nil, fmt.Errorf("%w: origin and destination are required", ErrInvalidQuery)
	}
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		mode = "driving"
	}
	if !travelModes[mode] {
		return nil, fmt.Errorf("%w: unknown travel mode %q", ErrInvalidQuery, mode)
	}

	params := url.Values{}
	params.Set("origin", origin)
	params.Set("destination", destination)
	params.Set("mode", mode)
	params.Set("alternatives", "false")

	var resp wireDirectionsResponse
	if err := c.do(ctx, "/directions/json", params, &resp); err != nil {
		return nil, err
	}
	switch resp.Status {
	case "OK":
	case "ZERO_RESULTS", "NOT_FOUND":
		return nil, fmt.Errorf("%w: %s to %s by %s", ErrNoRoute, origin, destination, mode)
	default:
		return nil, fmt.Errorf("%w: status %s: %s", ErrUpstream, resp.Status, resp.ErrorMessage)
	}
	if len(resp.Routes) == 0 || len(resp.Routes[0].Legs) == 0 {
		return nil, fmt.Errorf("%w: provider returned no usable route", ErrNoRoute)
	}

	route := resp.Routes[0]
	return &DirectionsResult{
		DistanceText: route.Legs[0].Distance.Text,
		DurationText: route.Legs[0].Duration.Text,
		Polyline:     route.OverviewPolyline.Points,
	}, nil
}

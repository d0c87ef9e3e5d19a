package places

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frontdesk-labs/frontdesk/internal/log"
)

// fakeMaps serves canned Maps Web Service responses and records the
// requests it saw.
type fakeMaps struct {
	searchBody     any
	detailsBody    any
	directionsBody any
	statusCode     int // non-zero forces an HTTP error on every route
	requests       []*http.Request
}

func (f *fakeMaps) handler() http.Handler {
	write := func(w http.ResponseWriter, body any) {
		if f.statusCode != 0 {
			w.WriteHeader(f.statusCode)
			return
		}
		_ = json.NewEncoder(w).Encode(body)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/place/textsearch/json", func(w http.ResponseWriter, r *http.Request) {
		f.requests = append(f.requests, r)
		write(w, f.searchBody)
	})
	mux.HandleFunc("/place/nearbysearch/json", func(w http.ResponseWriter, r *http.Request) {
		f.requests = append(f.requests, r)
		write(w, f.searchBody)
	})
	mux.HandleFunc("/place/details/json", func(w http.ResponseWriter, r *http.Request) {
		f.requests = append(f.requests, r)
		write(w, f.detailsBody)
	})
	mux.HandleFunc("/directions/json", func(w http.ResponseWriter, r *http.Request) {
		f.requests = append(f.requests, r)
		write(w, f.directionsBody)
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeMaps) *Client {
	t.Helper()

	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	client, err := NewClient("test-key", log.NewNop(),
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithTimeout(2*time.Second))
	require.NoError(t, err)
	return client
}

// wireCard builds one provider search result.
func wireCard(id, name string, rating float64, openNow bool) map[string]any {
	return map[string]any{
		"place_id":           id,
		"name":               name,
		"formatted_address":  name + " street 1",
		"rating":             rating,
		"user_ratings_total": 12,
		"opening_hours":      map[string]any{"open_now": openNow},
		"geometry": map[string]any{
			"location": map[string]any{"lat": 29.76, "lng": -95.37},
		},
	}
}

func searchBody(status string, results ...map[string]any) map[string]any {
	if results == nil {
		results = []map[string]any{}
	}
	return map[string]any{"status": status, "results": results}
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	_, err := NewClient("", log.NewNop())
	assert.Error(t, err, "empty key must be rejected")

	client, err := NewClient("key", nil)
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestQueryValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		query   PlaceQuery
		wantErr bool
	}{
		{
			name:  "valid text query",
			query: PlaceQuery{FreeText: "coffee", Center: LatLng{Lat: 29.76, Lng: -95.37}, RadiusM: 2000},
		},
		{
			name:  "radius defaults when omitted",
			query: PlaceQuery{FreeText: "coffee", Center: LatLng{Lat: 29.76, Lng: -95.37}},
		},
		{
			name:    "negative radius",
			query:   PlaceQuery{FreeText: "coffee", RadiusM: -1},
			wantErr: true,
		},
		{
			name:    "latitude out of range",
			query:   PlaceQuery{FreeText: "coffee", Center: LatLng{Lat: 91}},
			wantErr: true,
		},
		{
			name:    "longitude out of range",
			query:   PlaceQuery{FreeText: "coffee", Center: LatLng{Lng: -181}},
			wantErr: true,
		},
		{
			name:    "min rating above five",
			query:   PlaceQuery{FreeText: "coffee", MinRating: ptr(5.5)},
			wantErr: true,
		},
		{
			name:    "no text and no category",
			query:   PlaceQuery{Center: LatLng{Lat: 1, Lng: 1}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.query.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidQuery)
				return
			}
			require.NoError(t, err)
			assert.Positive(t, tt.query.RadiusM)
		})
	}
}

func TestSearchMinRatingFilter(t *testing.T) {
	t.Parallel()

	// Five results, two below 3.0; min_rating 3 keeps exactly three.
	f := &fakeMaps{searchBody: searchBody("OK",
		wireCard("p1", "High Roast", 4.5, true),
		wireCard("p2", "Low Drip", 2.1, true),
		wireCard("p3", "Mid Brew", 3.0, true),
		wireCard("p4", "Weak Filter", 2.9, true),
		wireCard("p5", "Top Bean", 4.9, true),
	)}
	client := newTestClient(t, f)

	cards, err := client.Search(context.Background(), PlaceQuery{
		FreeText:  "coffee",
		Center:    LatLng{Lat: 29.76, Lng: -95.37},
		RadiusM:   2000,
		MinRating: ptr(3.0),
	})
	require.NoError(t, err)
	require.Len(t, cards, 3)

	// Provider rank order preserved.
	assert.Equal(t, "p1", cards[0].PlaceID)
	assert.Equal(t, "p3", cards[1].PlaceID)
	assert.Equal(t, "p5", cards[2].PlaceID)
	for _, card := range cards {
		require.NotNil(t, card.Rating)
		assert.GreaterOrEqual(t, *card.Rating, 3.0)
	}
}

func TestSearchOpenNowFilter(t *testing.T) {
	t.Parallel()

	closed := wireCard("p2", "Closed Cafe", 4.0, false)
	noHours := wireCard("p3", "Unknown Cafe", 4.0, false)
	delete(noHours, "opening_hours")

	f := &fakeMaps{searchBody: searchBody("OK",
		wireCard("p1", "Open Cafe", 4.0, true), closed, noHours,
	)}
	client := newTestClient(t, f)

	cards, err := client.Search(context.Background(), PlaceQuery{
		FreeText: "cafe",
		Center:   LatLng{Lat: 29.76, Lng: -95.37},
		OpenNow:  true,
	})
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "p1", cards[0].PlaceID)
	require.NotNil(t, cards[0].OpenNow)
	assert.True(t, *cards[0].OpenNow)
}

func TestSearchZeroResults(t *testing.T) {
	t.Parallel()

	f := &fakeMaps{searchBody: searchBody("ZERO_RESULTS")}
	client := newTestClient(t, f)

	cards, err := client.Search(context.Background(), PlaceQuery{
		FreeText: "nothing here",
		Center:   LatLng{Lat: 0, Lng: 0},
	})
	require.NoError(t, err, "an empty result set is not an error")
	assert.Empty(t, cards)
	assert.NotNil(t, cards)
}

func TestSearchProviderStatusError(t *testing.T) {
	t.Parallel()

	f := &fakeMaps{searchBody: map[string]any{
		"status":        "REQUEST_DENIED",
		"error_message": "key rejected",
	}}
	client := newTestClient(t, f)

	_, err := client.Search(context.Background(), PlaceQuery{
		FreeText: "coffee",
		Center:   LatLng{Lat: 1, Lng: 1},
	})
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestSearchHTTPFailure(t *testing.T) {
	t.Parallel()

	f := &fakeMaps{statusCode: http.StatusBadGateway}
	client := newTestClient(t, f)

	_, err := client.Search(context.Background(), PlaceQuery{
		FreeText: "coffee",
		Center:   LatLng{Lat: 1, Lng: 1},
	})
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestSearchEndpointSelection(t *testing.T) {
	t.Parallel()

	f := &fakeMaps{searchBody: searchBody("OK")}
	client := newTestClient(t, f)
	ctx := context.Background()

	_, err := client.Search(ctx, PlaceQuery{
		FreeText: "coffee",
		Category: "cafe",
		Center:   LatLng{Lat: 29.76, Lng: -95.37},
	})
	require.NoError(t, err)

	_, err = client.Search(ctx, PlaceQuery{
		Category: "cafe",
		Center:   LatLng{Lat: 29.76, Lng: -95.37},
	})
	require.NoError(t, err)

	require.Len(t, f.requests, 2)

	text := f.requests[0]
	assert.Equal(t, "/place/textsearch/json", text.URL.Path)
	assert.Equal(t, "coffee cafe", text.URL.Query().Get("query"), "category joins the keyword")
	assert.Equal(t, "29.76,-95.37", text.URL.Query().Get("location"))
	assert.Equal(t, "2000", text.URL.Query().Get("radius"))
	assert.Equal(t, "test-key", text.URL.Query().Get("key"))

	nearby := f.requests[1]
	assert.Equal(t, "/place/nearbysearch/json", nearby.URL.Path)
	assert.Equal(t, "cafe", nearby.URL.Query().Get("type"))
}

func TestSearchCardNormalization(t *testing.T) {
	t.Parallel()

	raw := wireCard("pX", "Photo Cafe", 4.2, true)
	raw["photos"] = []map[string]any{{"photo_reference": "ref-1"}}
	f := &fakeMaps{searchBody: searchBody("OK", raw)}
	client := newTestClient(t, f)

	cards, err := client.Search(context.Background(), PlaceQuery{
		FreeText: "coffee",
		Center:   LatLng{Lat: 29.76, Lng: -95.37},
	})
	require.NoError(t, err)
	require.Len(t, cards, 1)

	card := cards[0]
	assert.Equal(t, "https://www.google.com/maps/place/?q=place_id:pX", card.MapsURL)
	assert.Contains(t, card.PhotoURL, "/place/photo?")
	assert.Contains(t, card.PhotoURL, "maxwidth=600")
	assert.Contains(t, card.PhotoURL, "photo_reference=ref-1")
	assert.Equal(t, "Photo Cafe street 1", card.Address)
	assert.Equal(t, 12, card.RatingCount)
	assert.InDelta(t, 29.76, card.Location.Lat, 1e-9)
}

func TestRetryableError(t *testing.T) {
	t.Parallel()

	assert.True(t, retryableError(errors.New("provider returned status 503: oops")))
	assert.True(t, retryableError(errors.New("read tcp: connection reset by peer")))
	assert.False(t, retryableError(errors.New("provider returned status 403: denied")))
	assert.False(t, retryableError(nil))
}

func ptr[T any](v T) *T { return &v }

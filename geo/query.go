package geo

import (
	"fmt"

	"github.com/twetter99/afluencia360/external/nominatim"
)

var ErrLocationNotFound = fmt.Errorf("location is not found")

// LocationSearcher resolves a free-form address to WGS84 coordinates. The
// stop catalog uses it to fill in missing shelter coordinates.
type LocationSearcher interface {
	LookupCoordinate(query string) (float64, float64, error)
}

type NominatimSearcher struct {
	client *nominatim.NominatimClient
}

func NewNominatimSearcher(endpoint string) *NominatimSearcher {
	return &NominatimSearcher{
		client: nominatim.New(endpoint),
	}
}

func (n *NominatimSearcher) LookupCoordinate(query string) (float64, float64, error) {
	places, err := n.client.Search(query)
	if err != nil {
		return 0, 0, err
	}

	if len(places) == 0 {
		return 0, 0, ErrLocationNotFound
	}

	return places[0].Latitude, places[0].Longitude, nil
}

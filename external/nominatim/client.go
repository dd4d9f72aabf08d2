package nominatim

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"
)

// Place is one match returned by the nominatim search endpoint.
type Place struct {
	PlaceID     int     `json:"place_id"`
	Latitude    float64 `json:"lat,string"`
	Longitude   float64 `json:"lon,string"`
	DisplayName string  `json:"display_name"`
	Class       string  `json:"class"`
	Type        string  `json:"type"`
}

type NominatimClient struct {
	endpoint string
	client   *http.Client
}

func New(endpoint string) *NominatimClient {
	return &NominatimClient{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Search resolves a free-form shelter address to candidate places.
func (n *NominatimClient) Search(query string) ([]Place, error) {
	q := url.URL{
		Path: "search.php",
		RawQuery: url.Values{
			"q":      []string{query},
			"format": []string{"json"},
			"limit":  []string{"1"},
		}.Encode(),
	}

	reqString := fmt.Sprintf("%s/%s", n.endpoint, q.String())
	log.WithField("prefix", "nominatim").WithField("req", reqString).Debug("request from nominatim")

	resp, err := n.client.Get(reqString)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.WithField("prefix", "nominatim").
			WithField("status", resp.StatusCode).Error("error response from nominatim")
		return nil, fmt.Errorf("fail to query address")
	}

	var result []Place
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return result, nil
}

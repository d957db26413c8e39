package zones

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mwhitford/zone-weather-service/internal/models"
)

// zoneFile mirrors the NWS zones payload: a feature collection whose
// properties carry the zone record.
type zoneFile struct {
	Features []struct {
		Properties struct {
			ID                  string   `json:"id"`
			Name                string   `json:"name"`
			State               string   `json:"state"`
			ObservationStations []string `json:"observationStations"`
		} `json:"properties"`
	} `json:"features"`
}

// Load reads the zone index from path, drops zones without observation
// stations, and deduplicates by zone key. The first occurrence of a key wins
// and file order is preserved, so repeated loads produce identical output.
func Load(path string) ([]models.Zone, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read zone file: %w", err)
	}

	var zf zoneFile
	if err := json.Unmarshal(data, &zf); err != nil {
		return nil, fmt.Errorf("parse zone file: %w", err)
	}

	seen := make(map[string]struct{}, len(zf.Features))
	zones := make([]models.Zone, 0, len(zf.Features))
	for _, f := range zf.Features {
		p := f.Properties
		if p.ID == "" || len(p.ObservationStations) == 0 {
			continue
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		zones = append(zones, models.Zone{
			Key:                 p.ID,
			Name:                p.Name,
			State:               p.State,
			ObservationStations: p.ObservationStations,
		})
	}
	return zones, nil
}

package calib

import (
	"encoding/json"
	"fmt"

	"trgemu/domain/core"
)

type clusterEntry struct {
	RegionPair
	Inner *Hist1D `json:"inner"`
	Outer *Hist1D `json:"outer"`
}

type clusterJSON struct {
	RadialCut float64        `json:"radial_cut"`
	Pairs     []clusterEntry `json:"pairs"`
}

// MarshalJSON writes the pairs as a list ordered by region.
func (t ClusterTable) MarshalJSON() ([]byte, error) {
	out := clusterJSON{RadialCut: t.RadialCut}
	for _, p := range t.SortedPairs() {
		hs := t.Pairs[p]
		out.Pairs = append(out.Pairs, clusterEntry{RegionPair: p, Inner: hs.Inner, Outer: hs.Outer})
	}
	return json.Marshal(out)
}

func (t *ClusterTable) UnmarshalJSON(data []byte) error {
	var in clusterJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	t.RadialCut = in.RadialCut
	t.Pairs = make(map[RegionPair]ClusterHists, len(in.Pairs))
	for _, e := range in.Pairs {
		if _, dup := t.Pairs[e.RegionPair]; dup {
			return fmt.Errorf("%w: region pair %s listed twice", core.ErrConfiguration, e.RegionPair)
		}
		t.Pairs[e.RegionPair] = ClusterHists{Inner: e.Inner, Outer: e.Outer}
	}
	return nil
}

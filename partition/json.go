package partition

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// partitionSetWire mirrors the stable JSON shape from spec.md §6; field
// names are the wire names, independent of the Go struct's field names.
type partitionSetWire struct {
	TreePath       string            `json:"treepath"`
	BranchDtypes   map[string]string `json:"branchdtypes"`
	BranchCounters map[string]string `json:"branchcounters"`
	NumPartitions  int               `json:"numpartitions"`
	NumEntries     int64             `json:"numentries"`
	Partitions     []Partition       `json:"partitions"`
}

// ToJSON returns the PartitionSet's wire representation (spec.md §6's
// shape) as JSON bytes, marshaled with goccy/go-json.
func (ps *PartitionSet) ToJSON() ([]byte, error) {
	w := partitionSetWire{
		TreePath:       ps.TreePath,
		BranchDtypes:   make(map[string]string, len(ps.BranchDtypes)),
		BranchCounters: ps.BranchCounters,
		NumPartitions:  ps.NumPartitions,
		NumEntries:     ps.NumEntries,
		Partitions:     ps.Partitions,
	}
	for name, dt := range ps.BranchDtypes {
		w.BranchDtypes[name] = string(dt)
	}
	return json.Marshal(w)
}

// ToJSONString is ToJSON rendered as a string.
func (ps *PartitionSet) ToJSONString() (string, error) {
	b, err := ps.ToJSON()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// FromJSON reconstructs and validates a PartitionSet from its wire bytes,
// re-running the construction invariants from spec.md §3.2.
func FromJSON(data []byte) (*PartitionSet, error) {
	var w partitionSetWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	dtypes := make(map[string]Dtype, len(w.BranchDtypes))
	for name, dt := range w.BranchDtypes {
		dtypes[name] = Dtype(dt)
	}
	ps, err := NewPartitionSet(w.TreePath, dtypes, w.BranchCounters, w.Partitions)
	if err != nil {
		return nil, err
	}
	if ps.NumPartitions != w.NumPartitions {
		return nil, fmt.Errorf("partition: wire numpartitions=%d disagrees with len(partitions)=%d", w.NumPartitions, ps.NumPartitions)
	}
	if ps.NumEntries != w.NumEntries {
		return nil, fmt.Errorf("partition: wire numentries=%d disagrees with computed %d", w.NumEntries, ps.NumEntries)
	}
	return ps, nil
}

// FromJSONString is FromJSON over a string.
func FromJSONString(s string) (*PartitionSet, error) {
	return FromJSON([]byte(s))
}

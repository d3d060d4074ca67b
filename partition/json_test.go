package partition

import "testing"

func samplePartitionSet(t *testing.T) *PartitionSet {
	t.Helper()
	ps, err := NewPartitionSet(
		"events",
		map[string]Dtype{"x": ">i4", "y": ">f8"},
		map[string]string{"y": "ny"},
		[]Partition{
			{Index: 0, Ranges: []Range{{Path: "a.root", EntryStart: 0, EntryEnd: 100}}},
			{Index: 1, Ranges: []Range{{Path: "a.root", EntryStart: 100, EntryEnd: 200}, {Path: "b.root", EntryStart: 0, EntryEnd: 50}}},
		},
	)
	if err != nil {
		t.Fatalf("NewPartitionSet: %v", err)
	}
	return ps
}

func TestPartitionSetJSONRoundTrip(t *testing.T) {
	ps := samplePartitionSet(t)

	b, err := ps.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	got, err := FromJSON(b)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}

	if got.TreePath != ps.TreePath || got.NumPartitions != ps.NumPartitions || got.NumEntries != ps.NumEntries {
		t.Fatalf("round-tripped = %+v, want %+v", got, ps)
	}
	for name, dt := range ps.BranchDtypes {
		if got.BranchDtypes[name] != dt {
			t.Fatalf("branchdtypes[%q] = %q, want %q", name, got.BranchDtypes[name], dt)
		}
	}
	for i, p := range ps.Partitions {
		gp := got.Partitions[i]
		if gp.Index != p.Index || len(gp.Ranges) != len(p.Ranges) {
			t.Fatalf("partition %d = %+v, want %+v", i, gp, p)
		}
		for j, r := range p.Ranges {
			gr := gp.Ranges[j]
			if gr.Path != r.Path || gr.EntryStart != r.EntryStart || gr.EntryEnd != r.EntryEnd {
				t.Fatalf("partition %d range %d = %+v, want %+v", i, j, gr, r)
			}
		}
	}
}

func TestPartitionSetJSONStringRoundTrip(t *testing.T) {
	ps := samplePartitionSet(t)

	s, err := ps.ToJSONString()
	if err != nil {
		t.Fatalf("ToJSONString: %v", err)
	}
	got, err := FromJSONString(s)
	if err != nil {
		t.Fatalf("FromJSONString: %v", err)
	}
	if got.NumEntries != ps.NumEntries {
		t.Fatalf("NumEntries = %d, want %d", got.NumEntries, ps.NumEntries)
	}
}

func TestNewPartitionSetRejectsGap(t *testing.T) {
	_, err := NewPartitionSet(
		"events",
		map[string]Dtype{"x": ">i4"},
		nil,
		[]Partition{
			{Index: 0, Ranges: []Range{{Path: "a.root", EntryStart: 0, EntryEnd: 100}}},
			{Index: 1, Ranges: []Range{{Path: "a.root", EntryStart: 150, EntryEnd: 200}}},
		},
	)
	if err == nil {
		t.Fatalf("NewPartitionSet: want error for a gap in a.root's coverage, got nil")
	}
}

func TestNewPartitionSetRejectsBadIndex(t *testing.T) {
	_, err := NewPartitionSet(
		"events",
		map[string]Dtype{"x": ">i4"},
		nil,
		[]Partition{
			{Index: 1, Ranges: []Range{{Path: "a.root", EntryStart: 0, EntryEnd: 100}}},
		},
	)
	if err == nil {
		t.Fatalf("NewPartitionSet: want error for partition 0 with Index 1, got nil")
	}
}

package orbits

import "testing"

func TestTableConcatAndDefragment(t *testing.T) {
	var table Table[int]
	if table.Len() != 0 {
		t.Fatalf("empty table Len = %d, want 0", table.Len())
	}
	if table.Fragmented() {
		t.Fatal("empty table should not be fragmented")
	}

	a := FromRows([]int{1, 2, 3})
	b := FromRows([]int{4, 5})

	table.Concat(&a)
	if table.Fragmented() {
		t.Fatal("single-block table should not be fragmented")
	}

	table.Concat(&b)
	if !table.Fragmented() {
		t.Fatal("two-block table should be fragmented")
	}
	if table.Len() != 5 {
		t.Fatalf("Len = %d, want 5", table.Len())
	}

	table.Defragment()
	if table.Fragmented() {
		t.Fatal("table should be contiguous after Defragment")
	}

	rows := table.Rows()
	want := []int{1, 2, 3, 4, 5}
	if len(rows) != len(want) {
		t.Fatalf("Rows() has %d rows, want %d", len(rows), len(want))
	}
	for i, v := range want {
		if rows[i] != v {
			t.Errorf("rows[%d] = %d, want %d", i, rows[i], v)
		}
	}
}

func TestTableConcatSkipsEmptyBlocks(t *testing.T) {
	var table Table[string]
	var empty Table[string]

	table.Concat(&empty)
	if table.Fragmented() || table.Len() != 0 {
		t.Fatal("concat of empty table should be a no-op")
	}

	a := FromRows([]string{"x"})
	table.Concat(&a)
	table.Concat(&empty)
	if table.Fragmented() {
		t.Fatal("concat of empty table must not add blocks")
	}
}

func TestTableAppend(t *testing.T) {
	var table Table[int]
	table.Append(1)
	table.Append(2, 3)
	table.Append()

	if table.Len() != 3 {
		t.Fatalf("Len = %d, want 3", table.Len())
	}
	if !table.Fragmented() {
		t.Fatal("two appends should leave the table fragmented")
	}
}

func TestTableGobRoundTrip(t *testing.T) {
	table := FromRows([]FittedOrbit{
		{OrbitID: "a", EpochMJD: 60000, RADeg: 10},
		{OrbitID: "b", EpochMJD: 60001, RADeg: 20},
	})
	extra := FromRows([]FittedOrbit{{OrbitID: "c"}})
	table.Concat(&extra)

	data, err := table.GobEncode()
	if err != nil {
		t.Fatalf("GobEncode failed: %v", err)
	}

	var decoded Table[FittedOrbit]
	if err := decoded.GobDecode(data); err != nil {
		t.Fatalf("GobDecode failed: %v", err)
	}

	if decoded.Len() != 3 {
		t.Fatalf("decoded Len = %d, want 3", decoded.Len())
	}
	if decoded.Fragmented() {
		t.Error("decoded table should be contiguous")
	}
	if decoded.Rows()[2].OrbitID != "c" {
		t.Errorf("decoded rows out of order: %+v", decoded.Rows())
	}
}

package topology

import (
	"testing"
)

func TestParseAddressBlock(t *testing.T) {
	type testCase struct {
		cidr        string
		expectedErr bool
	}
	for _, tc := range []testCase{
		{cidr: "10.0.0.0/16"},
		{cidr: "10.0.0.0/28"},
		{cidr: "0.0.0.0/0"},
		{cidr: "10.0.0.1/16", expectedErr: true},
		{cidr: "10.0.0.0", expectedErr: true},
		{cidr: "fd00::/8", expectedErr: true},
		{cidr: "not-a-cidr", expectedErr: true},
	} {
		t.Run(tc.cidr, func(t *testing.T) {
			block, err := ParseAddressBlock(tc.cidr)
			if tc.expectedErr {
				if err == nil {
					t.Fatalf("expected error, got %s", block)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if block.String() != tc.cidr {
				t.Errorf("expected %s, got %s", tc.cidr, block)
			}
		})
	}
}

func TestAddressBlockRelations(t *testing.T) {
	vpc := MustParseAddressBlock("10.0.0.0/16")
	subnet := MustParseAddressBlock("10.0.4.0/24")
	outside := MustParseAddressBlock("10.1.0.0/24")
	if !vpc.Contains(subnet) {
		t.Errorf("expected %s to contain %s", vpc, subnet)
	}
	if subnet.Contains(vpc) {
		t.Errorf("expected %s not to contain %s", subnet, vpc)
	}
	if vpc.Contains(outside) || vpc.Overlaps(outside) {
		t.Errorf("expected %s and %s to be disjoint", vpc, outside)
	}
	if vpc.Size() != 65536 {
		t.Errorf("expected 65536 addresses, got %d", vpc.Size())
	}
	lower, upper := subnet.halves()
	if lower.String() != "10.0.4.0/25" || upper.String() != "10.0.4.128/25" {
		t.Errorf("unexpected halves %s %s", lower, upper)
	}
}

func TestAllocator(t *testing.T) {
	alloc := newAllocator(MustParseAddressBlock("10.0.0.0/24"))
	var got []string
	for _, bits := range []int{28, 26, 28, 25, 27} {
		block, ok := alloc.allocate(bits)
		if !ok {
			t.Fatalf("expected /%d to fit, remaining %d", bits, alloc.remaining())
		}
		got = append(got, block.String())
	}
	expected := []string{"10.0.0.0/28", "10.0.0.64/26", "10.0.0.16/28", "10.0.0.128/25", "10.0.0.32/27"}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("allocation %d: expected %s, got %s", i, expected[i], got[i])
		}
	}
	if alloc.remaining() != 0 {
		t.Errorf("expected the block to be full, %d addresses remain", alloc.remaining())
	}
	if _, ok := alloc.allocate(32); ok {
		t.Errorf("expected allocation from a full block to fail")
	}
}

func TestAllocatorRejectsOversizedBlocks(t *testing.T) {
	alloc := newAllocator(MustParseAddressBlock("10.0.0.0/24"))
	if _, ok := alloc.allocate(23); ok {
		t.Errorf("expected a /23 not to fit in a /24")
	}
	if _, ok := alloc.allocate(33); ok {
		t.Errorf("expected /33 to be rejected")
	}
}

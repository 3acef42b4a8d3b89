package types

import (
	"testing"
)

func TestNewDid_Deterministic(t *testing.T) {
	a := NewDid([]byte("alpha"), []byte("beta"))
	b := NewDid([]byte("alpha"), []byte("beta"))
	if a != b {
		t.Errorf("Expected identical digests for identical components")
	}
}

func TestNewDid_ComponentOrderMatters(t *testing.T) {
	a := NewDid([]byte("alpha"), []byte("beta"))
	b := NewDid([]byte("beta"), []byte("alpha"))
	if a == b {
		t.Errorf("Expected different digests for reordered components")
	}
}

func TestDid_HexRoundTrip(t *testing.T) {
	orig := NewDid([]byte("payload"))
	parsed, err := DidFromHex(orig.String())
	if err != nil {
		t.Fatalf("Expected parse to succeed, got: %v", err)
	}
	if parsed != orig {
		t.Errorf("Expected round-trip to preserve digest")
	}
}

func TestDidFromHex_RejectsBadInput(t *testing.T) {
	for _, s := range []string{"", "0x", "0xzz", "0xdeadbeef"} {
		if _, err := DidFromHex(s); err == nil {
			t.Errorf("Expected %q to be rejected", s)
		}
	}
}

func TestConstructId_ComputeDid_Deterministic(t *testing.T) {
	id := sampleConstructId("send", "runbook.tf")
	if id.ComputeDid() != id.ComputeDid() {
		t.Errorf("Expected stable digest across calls")
	}
}

func TestConstructId_ComputeDid_SensitiveToEveryComponent(t *testing.T) {
	base := sampleConstructId("send", "runbook.tf")
	variants := []ConstructId{
		sampleConstructId("send2", "runbook.tf"),
		sampleConstructId("send", "other.tf"),
	}
	typeVariant := base
	typeVariant.ConstructType = ConstructTypeVariable
	variants = append(variants, typeVariant)

	baseDid := base.ComputeDid()
	for i, v := range variants {
		if v.ComputeDid() == baseDid {
			t.Errorf("variant %d: expected a different digest", i)
		}
	}
}

func sampleConstructId(name, location string) ConstructId {
	pkg := PackageId{
		RunbookId: RunbookId{Org: "acme", Workspace: "main", Name: "deploy"},
		Location:  "runbook.tf",
		Name:      "deploy",
	}
	return ConstructId{
		PackageId:     pkg,
		Location:      location,
		ConstructType: ConstructTypeAction,
		ConstructName: name,
	}
}

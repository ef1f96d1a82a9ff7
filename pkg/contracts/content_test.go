package contracts

import "testing"

func TestPartnerType_Valid(t *testing.T) {
	for _, pt := range PartnerTypes {
		if !pt.Valid() {
			t.Errorf("expected %q to be valid", pt)
		}
	}
	if PartnerType("platinum").Valid() {
		t.Error("expected unknown tier to be invalid")
	}
}

func TestPartnerType_Rank(t *testing.T) {
	if PartnerMain.Rank() != 0 || PartnerSilver.Rank() != 3 {
		t.Errorf("unexpected ranks: main=%d silver=%d", PartnerMain.Rank(), PartnerSilver.Rank())
	}
	if PartnerType("").Rank() != len(PartnerTypes) {
		t.Error("unknown tier should sort last")
	}
}

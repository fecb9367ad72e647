package feedback

import "testing"

func TestCorrelateByID(t *testing.T) {
	deliveries := []Delivery{
		{DeliveryID: "del-1", DealName: "Acme"},
		{DeliveryID: "del-2", DealName: "Globex"},
	}
	if d, ok := CorrelateByID(deliveries, "del-2"); !ok || d.DealName != "Globex" {
		t.Fatalf("got %+v ok=%v", d, ok)
	}
	if _, ok := CorrelateByID(deliveries, "del-404"); ok {
		t.Fatal("unknown id must not correlate")
	}
	if _, ok := CorrelateByID(deliveries, ""); ok {
		t.Fatal("empty id must not correlate")
	}
}

func TestCorrelateByDealName_EarliestWins(t *testing.T) {
	deliveries := []Delivery{
		{DeliveryID: "del-1", DealName: "Acme", CaseStudyIDs: []string{"cs-001"}},
		{DeliveryID: "del-2", DealName: "Acme", CaseStudyIDs: []string{"cs-002"}},
	}
	d, ok := CorrelateByDealName(deliveries, "Acme")
	if !ok || d.DeliveryID != "del-1" {
		t.Fatalf("earliest delivery must win: %+v ok=%v", d, ok)
	}
	if _, ok := CorrelateByDealName(deliveries, "Initech"); ok {
		t.Fatal("unknown deal must not correlate")
	}
}

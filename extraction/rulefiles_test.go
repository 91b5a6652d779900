package extraction

import (
	"context"
	"reflect"
	"testing"

	"github.com/liamcoop/courtextract/patterns"
)

// The rule files shipped in config/patterns must load, compile and work on
// realistic text.
func TestShippedRuleFiles(t *testing.T) {
	engine, err := NewEngine(patterns.NewFileStore("../config/patterns"), WithClock(fixedClock))
	if err != nil {
		t.Fatalf("NewEngine() failed: %v", err)
	}

	loaded, err := engine.Registry().Warm(context.Background())
	if err != nil {
		t.Fatalf("Warm() failed: %v", err)
	}
	if want := []string{"orange", "san_bernardino"}; !reflect.DeepEqual(loaded, want) {
		t.Errorf("Warm() = %v, want %v", loaded, want)
	}

	tests := []struct {
		jurisdiction string
		text         string
		want         string
	}{
		{
			"orange",
			"Plaintiff alleges that on or about 06/14/2023 defendant's vehicle struck plaintiff. " +
				"Electronically Filed: 01/05/2024",
			"2023-06-14",
		},
		{
			"orange",
			"CIVIL COMPLAINT. Date of Incident: 2022-11-03. Filed 2023-01-20 by counsel.",
			"2022-11-03",
		},
		{
			"san_bernardino",
			"INCIDENT DATE: 4/2/2021\nThe parties met on or about 5/1/2021 to discuss settlement.",
			"2021-04-02",
		},
	}
	for _, tt := range tests {
		res, err := engine.ExtractDocument(context.Background(), Document{
			ID:           tt.jurisdiction + "-doc",
			Jurisdiction: tt.jurisdiction,
			Text:         tt.text,
		}, patterns.FieldIncidentDate)
		if err != nil {
			t.Fatalf("ExtractDocument(%s) failed: %v", tt.jurisdiction, err)
		}
		got := res.Value(patterns.FieldIncidentDate)
		if got == nil || got.String() != tt.want {
			t.Errorf("%s: incident_date = %v, want %s (%+v)", tt.jurisdiction, got, tt.want, res.Fields[patterns.FieldIncidentDate])
		}
	}
}

package ontology

import (
	"context"
	"reflect"
	"testing"
)

func TestNormalizeTerm(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Hypothyroidism", "hypothyroidism"},
		{"  Type 2   Diabetes\tMellitus ", "type 2 diabetes mellitus"},
		{"SJÖGREN Syndrome", "sjögren syndrome"},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range cases {
		if got := NormalizeTerm(tc.in); got != tc.want {
			t.Errorf("NormalizeTerm(%q) = %q, want %q", tc.in, got, tc.want)
		}
		// Applying it again must not change the key.
		if got := NormalizeTerm(NormalizeTerm(tc.in)); got != tc.want {
			t.Errorf("NormalizeTerm not idempotent for %q", tc.in)
		}
	}
}

func testIndex() *Index {
	ix := NewIndex()
	ix.concepts["C0020676"] = &Concept{
		ID:            "C0020676",
		PreferredName: "Hypothyroidism",
		SemanticTypes: []string{"T047"},
		Codes:         map[string]string{"ICD9CM": "244.9", "ICD10CM": "E03.9"},
	}
	ix.concepts["C9999999"] = &Concept{
		ID:            "C9999999",
		PreferredName: "Thyroid Dysfunction NOS",
		SemanticTypes: []string{"T047"},
	}
	ix.terms["hypothyroidism"] = []TermEntry{
		{ConceptID: "C0020676", Original: "Hypothyroidism", Preferred: true},
	}
	ix.terms["thyroid dysfunction"] = []TermEntry{
		{ConceptID: "C9999999", Original: "Thyroid Dysfunction", Preferred: false},
		{ConceptID: "C0020676", Original: "Thyroid Dysfunction", Preferred: false},
	}
	ix.parents["C9999999"] = []string{"C0020676"}
	return ix
}

func TestIndexLookupTerm(t *testing.T) {
	ix := testIndex()
	ctx := context.Background()

	matches, err := ix.LookupTerm(ctx, "thyroid dysfunction")
	if err != nil {
		t.Fatalf("LookupTerm: %v", err)
	}
	want := []TermMatch{
		{ConceptID: "C0020676", PreferredName: "Hypothyroidism", HasCode: true},
		{ConceptID: "C9999999", PreferredName: "Thyroid Dysfunction NOS", HasCode: false},
	}
	if !reflect.DeepEqual(matches, want) {
		t.Errorf("LookupTerm = %+v, want %+v", matches, want)
	}

	if matches, _ := ix.LookupTerm(ctx, "no such term"); len(matches) != 0 {
		t.Errorf("miss returned %+v, want empty", matches)
	}
}

func TestIndexScanTermKeys(t *testing.T) {
	ix := testIndex()
	ctx := context.Background()

	// Needle contained in a key.
	keys, _ := ix.ScanTermKeys(ctx, "dysfunction")
	if !reflect.DeepEqual(keys, []string{"thyroid dysfunction"}) {
		t.Errorf("ScanTermKeys(dysfunction) = %v", keys)
	}

	// Key contained in a longer needle.
	keys, _ = ix.ScanTermKeys(ctx, "severe hypothyroidism of pregnancy")
	if !reflect.DeepEqual(keys, []string{"hypothyroidism"}) {
		t.Errorf("ScanTermKeys(long needle) = %v", keys)
	}

	if keys, _ := ix.ScanTermKeys(ctx, "zzz"); len(keys) != 0 {
		t.Errorf("ScanTermKeys(zzz) = %v, want empty", keys)
	}
}

func TestIndexConceptAccess(t *testing.T) {
	ix := testIndex()
	ctx := context.Background()

	c, err := ix.GetConcept(ctx, "C0020676")
	if err != nil || c == nil || c.PreferredName != "Hypothyroidism" {
		t.Fatalf("GetConcept = %+v, %v", c, err)
	}
	if c, _ := ix.GetConcept(ctx, "C404"); c != nil {
		t.Errorf("GetConcept miss = %+v, want nil", c)
	}

	codes, _ := ix.CodesFor(ctx, "C0020676")
	want := []CodeMapping{
		{Source: "ICD10CM", Code: "E03.9"},
		{Source: "ICD9CM", Code: "244.9"},
	}
	if !reflect.DeepEqual(codes, want) {
		t.Errorf("CodesFor = %+v, want %+v", codes, want)
	}
	if codes, _ := ix.CodesFor(ctx, "C9999999"); len(codes) != 0 {
		t.Errorf("CodesFor(uncoded) = %+v, want empty", codes)
	}

	parents, _ := ix.Parents(ctx, "C9999999")
	if !reflect.DeepEqual(parents, []string{"C0020676"}) {
		t.Errorf("Parents = %v", parents)
	}
	if parents, _ := ix.Parents(ctx, "C0020676"); len(parents) != 0 {
		t.Errorf("Parents(root) = %v, want empty", parents)
	}

	if ok, _ := ix.HasData(ctx); !ok {
		t.Error("HasData = false for populated index")
	}
	if ok, _ := NewIndex().HasData(ctx); ok {
		t.Error("HasData = true for empty index")
	}
}

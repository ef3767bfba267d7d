package etl

import (
	"testing"
)

func TestExtractDimensionDedupesKeepingFirstOccurrence(t *testing.T) {
	batch := []Record{
		{ID: i64Ptr(1), TypeID: i64Ptr(200), TypeLabel: strPtr("first label")},
		{ID: i64Ptr(2), TypeID: i64Ptr(300), TypeLabel: strPtr("other")},
		{ID: i64Ptr(3), TypeID: i64Ptr(200), TypeLabel: strPtr("later label")},
	}

	dims := ExtractDimensions(batch)
	if len(dims.Types) != 2 {
		t.Fatalf("expected 2 type rows, got %d", len(dims.Types))
	}
	if dims.Types[0].ID != 200 || dims.Types[0].Label != "first label" {
		t.Fatalf("expected first occurrence kept, got %+v", dims.Types[0])
	}
	if dims.Types[1].ID != 300 {
		t.Fatalf("expected stable batch order, got %+v", dims.Types[1])
	}
}

func TestExtractDimensionOverridePrecedence(t *testing.T) {
	batch := []Record{
		// id 1 has a canonical status label; the raw text must lose.
		{ID: i64Ptr(1), StatusID: i64Ptr(1), StatusLabel: strPtr("something stale")},
		// id 999 has no override; the raw text must win.
		{ID: i64Ptr(2), StatusID: i64Ptr(999), StatusLabel: strPtr("raw status")},
	}

	dims := ExtractDimensions(batch)
	if len(dims.Statuses) != 2 {
		t.Fatalf("expected 2 status rows, got %d", len(dims.Statuses))
	}
	if dims.Statuses[0].Label != "Registreret" {
		t.Fatalf("expected override label Registreret, got %q", dims.Statuses[0].Label)
	}
	if dims.Statuses[1].Label != "raw status" {
		t.Fatalf("expected raw label kept, got %q", dims.Statuses[1].Label)
	}
}

func TestExtractDimensionDropsMissingIds(t *testing.T) {
	batch := []Record{
		{ID: i64Ptr(1), AreaID: nil, AreaLabel: strPtr("no id")},
		{ID: i64Ptr(2), AreaID: i64Ptr(0), AreaLabel: strPtr("sentinel id")},
		{ID: i64Ptr(3), AreaID: i64Ptr(5), AreaLabel: strPtr("kept")},
	}

	dims := ExtractDimensions(batch)
	if len(dims.Areas) != 1 {
		t.Fatalf("expected 1 area row, got %d", len(dims.Areas))
	}
	if dims.Areas[0].ID != 5 || dims.Areas[0].Label != "kept" {
		t.Fatalf("unexpected row %+v", dims.Areas[0])
	}
}

func TestExtractDimensionMissingLabelKeepsOverrideOrEmpty(t *testing.T) {
	batch := []Record{
		{ID: i64Ptr(1), ReasonID: i64Ptr(183001), ReasonLabel: nil},
		{ID: i64Ptr(2), GroupID: i64Ptr(42), GroupLabel: nil},
	}

	dims := ExtractDimensions(batch)
	if dims.Reasons[0].Label != "Ikke afvist" {
		t.Fatalf("expected override for reason 183001, got %q", dims.Reasons[0].Label)
	}
	if dims.Groups[0].Label != "" {
		t.Fatalf("expected empty label without override, got %q", dims.Groups[0].Label)
	}
}

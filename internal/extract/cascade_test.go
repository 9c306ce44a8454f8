package extract

import (
	"strings"
	"testing"
)

func TestParseCascadeStructuredResponse(t *testing.T) {
	response := "```json\n" + `{
    "chunk_id": "3",
    "requirements": [
        {
            "id": "3_REQ001",
            "requirement": "Banks must maintain a capital conservation buffer of 2.5%.",
            "category": "capital_adequacy",
            "priority": "high",
            "reference": "Article 129",
            "keywords": ["capital", "buffer"],
            "requirement_type": "mandatory"
        },
        {
            "requirement": "Institutions shall submit quarterly liquidity reports.",
        }
    ]
}` + "\n```"

	reqs := parseCascade(response, "3")
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requirements, got %d", len(reqs))
	}

	first := reqs[0]
	if first.ID != "3_REQ001" || first.Category != "capital_adequacy" {
		t.Errorf("unexpected first record: %+v", first)
	}
	if first.ExtractionMethod != MethodModel {
		t.Errorf("expected method %q, got %q", MethodModel, first.ExtractionMethod)
	}

	second := reqs[1]
	if second.ID != "3_REQ002" {
		t.Errorf("expected generated id for second record, got %q", second.ID)
	}
	if second.Reference != "Chunk 3" {
		t.Errorf("expected default reference, got %q", second.Reference)
	}
}

func TestParseCascadeRepairsTrailingCommas(t *testing.T) {
	response := `{"requirements": [{"requirement": "Banks must report exposures promptly.",}],}`
	reqs := parseCascade(response, "1")
	if len(reqs) != 1 {
		t.Fatalf("expected repaired JSON to parse, got %d records", len(reqs))
	}
	if reqs[0].ExtractionMethod != MethodModel {
		t.Errorf("expected tier-1 parse, got method %q", reqs[0].ExtractionMethod)
	}
}

func TestParseCascadeScopedObjects(t *testing.T) {
	// Surrounding prose breaks whole-document parsing; scoped objects
	// should still be mined out.
	response := `Here are the findings I identified in the text:
{"requirement": "Banks must maintain tier 1 capital above 6%.", "category": "capital_adequacy"}
And additionally:
{"requirement": "Institutions shall notify the regulator of breaches.", "priority": "high"}
Hope this helps!`

	reqs := parseCascade(response, "5")
	if len(reqs) != 2 {
		t.Fatalf("expected 2 scoped records, got %d", len(reqs))
	}
	for i, r := range reqs {
		if r.ExtractionMethod != MethodAlternative {
			t.Errorf("record %d: expected method %q, got %q", i, MethodAlternative, r.ExtractionMethod)
		}
	}
	if reqs[0].ID != "5_ALT001" {
		t.Errorf("expected assigned id 5_ALT001, got %q", reqs[0].ID)
	}
}

func TestParseCascadePatternFallback(t *testing.T) {
	response := `I could not produce JSON, but the text says: Banks must maintain adequate capital reserves at all times. Institutions shall report breaches within 48 hours.`

	reqs := parseCascade(response, "2")
	if len(reqs) == 0 {
		t.Fatal("expected pattern fallback records")
	}
	for _, r := range reqs {
		if r.ExtractionMethod != MethodPatternFallback {
			t.Errorf("expected method %q, got %q", MethodPatternFallback, r.ExtractionMethod)
		}
		if len(r.Text) <= minSpanLength || len(r.Text) >= maxSpanLength {
			t.Errorf("span out of bounds: %d chars", len(r.Text))
		}
	}
}

func TestParseCascadeNothingUsable(t *testing.T) {
	reqs := parseCascade("The weather was nice today", "9")
	if len(reqs) != 0 {
		t.Fatalf("expected no records for unusable response, got %d", len(reqs))
	}
}

func TestPatternFallbackStandardEscalatesToAggressive(t *testing.T) {
	// No institution subject, so the standard patterns miss; the
	// aggressive tier catches the bare obligation.
	text := "All relevant exposures must be reviewed by senior staff each quarter."
	reqs := patternFallback(text, "4", false)
	if len(reqs) != 1 {
		t.Fatalf("expected 1 aggressive-tier record, got %d", len(reqs))
	}
	if reqs[0].ExtractionMethod != MethodPatternFallback {
		t.Errorf("unexpected method %q", reqs[0].ExtractionMethod)
	}
}

func TestPatternFallbackSpanBounds(t *testing.T) {
	short := "Must act."
	long := "Banks must " + strings.Repeat("very ", 120) + "carefully manage risk."
	text := short + " " + long

	reqs := patternFallback(text, "1", true)
	for _, r := range reqs {
		if len(r.Text) <= minSpanLength || len(r.Text) >= maxSpanLength {
			t.Errorf("span out of bounds kept: %d chars", len(r.Text))
		}
	}
}

func TestPatternFallbackDedupesSpans(t *testing.T) {
	text := "Banks must report exposures quarterly. Banks must report exposures quarterly."
	reqs := patternFallback(text, "1", false)
	if len(reqs) != 1 {
		t.Fatalf("expected duplicate spans collapsed, got %d", len(reqs))
	}
}

func TestSummaryFallback(t *testing.T) {
	content := strings.Repeat("regulatory text ", 40) // > 300 chars
	req := summaryFallback(content, "8")

	if req.ID != "8_SUMMARY001" {
		t.Errorf("expected summary id, got %q", req.ID)
	}
	if req.Category != "review_required" || req.Priority != "low" {
		t.Errorf("unexpected summary record: %+v", req)
	}
	if req.ExtractionMethod != MethodSummaryFallback {
		t.Errorf("expected method %q, got %q", MethodSummaryFallback, req.ExtractionMethod)
	}
	if !strings.Contains(req.Text, "Manual review required") {
		t.Errorf("expected review marker in text, got %q", req.Text)
	}
	if !strings.HasSuffix(req.Text, "...") {
		t.Errorf("expected truncated preview, got tail %q", req.Text[len(req.Text)-10:])
	}
}

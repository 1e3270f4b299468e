package evaluator

import (
	"strings"
	"testing"

	"github.com/3CBolt/promptpractice/internal/model"
)

func result(response string) model.ModelResult {
	return model.ModelResult{
		ModelID:  "sample-fast",
		Response: response,
		Source:   model.SourceSample,
	}
}

func TestEvaluate_Bounds(t *testing.T) {
	responses := []string{
		"",
		"ok",
		"A short answer.",
		strings.Repeat("France is relevant here. ", 20),
	}
	for _, resp := range responses {
		score, _ := Evaluate("What is the capital of France?", result(resp))
		if score.Clarity < 0 || score.Clarity > SubScoreMax {
			t.Errorf("clarity %d out of range for %q", score.Clarity, resp)
		}
		if score.Completeness < 0 || score.Completeness > SubScoreMax {
			t.Errorf("completeness %d out of range for %q", score.Completeness, resp)
		}
		if score.Total != score.Clarity+score.Completeness {
			t.Errorf("total %d != %d + %d", score.Total, score.Clarity, score.Completeness)
		}
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	prompt := "Explain photosynthesis in simple terms"
	resp := result("Photosynthesis is how plants turn sunlight into energy. Chlorophyll absorbs light and drives the reaction.")

	s1, n1 := Evaluate(prompt, resp)
	s2, n2 := Evaluate(prompt, resp)
	if s1 != s2 || n1 != n2 {
		t.Error("identical inputs must score identically")
	}
}

func TestEvaluate_EmptyResponseScoresZero(t *testing.T) {
	score, notes := Evaluate("What is the capital of France?", result(""))
	if score.Clarity != 0 || score.Completeness != 0 || score.Total != 0 {
		t.Errorf("empty response scored %+v", score)
	}
	if notes == "" {
		t.Error("low scores must carry guidance notes")
	}
}

func TestEvaluate_NotesBelowMidpoint(t *testing.T) {
	// Terse off-topic fragment: low on both axes.
	score, notes := Evaluate("Explain how photosynthesis converts sunlight", result("no"))
	if score.Clarity >= 3 && score.Completeness >= 3 {
		t.Fatalf("test premise broken, score %+v", score)
	}
	if strings.TrimSpace(notes) == "" {
		t.Error("sub-score below midpoint must produce non-empty notes")
	}
}

func TestEvaluate_StrongResponseGetsConfirmation(t *testing.T) {
	resp := result("Paris is the capital of France. It has held that role for centuries, " +
		"serving as the seat of government and the country's cultural center. " +
		"The city sits on the Seine and is France's largest metropolitan area.")
	score, notes := Evaluate("What is the capital of France?", resp)
	if score.Clarity < 3 || score.Completeness < 3 {
		t.Fatalf("expected strong scores, got %+v", score)
	}
	if notes == "" {
		t.Error("strong responses still get a confirmation note")
	}
	if strings.Contains(notes, "misses part") || strings.Contains(notes, "unclear") {
		t.Errorf("strong response got remedial notes: %q", notes)
	}
}

func TestEvaluate_CompletenessRewardsTermCoverage(t *testing.T) {
	prompt := "Describe the climate and geography of Iceland"
	onTopic := result("Iceland's climate is subpolar oceanic, moderated by the Gulf Stream. " +
		"Its geography is volcanic, with glaciers, fjords, and geothermal fields across the island.")
	offTopic := result("Norway is a country in Scandinavia. It is known for its long coastline " +
		"and its winter sports tradition, and many tourists visit every year for skiing.")

	on, _ := Evaluate(prompt, onTopic)
	off, _ := Evaluate(prompt, offTopic)
	if on.Completeness <= off.Completeness {
		t.Errorf("on-topic completeness %d should beat off-topic %d", on.Completeness, off.Completeness)
	}
}

func TestEvaluateResult_WrapsModelResult(t *testing.T) {
	r := result("Paris is the capital of France. It is known worldwide.")
	scored := EvaluateResult("What is the capital of France?", r)
	if scored.ModelResult != r {
		t.Error("scored result must embed the original model result")
	}
	if scored.Scores.Total != scored.Scores.Clarity+scored.Scores.Completeness {
		t.Error("total must equal sum of sub-scores")
	}
	if scored.Notes == "" {
		t.Error("notes must be populated")
	}
}

func TestKeyTerms(t *testing.T) {
	terms := keyTerms("What is the capital of France?")
	want := map[string]bool{"capital": true, "france": true}
	if len(terms) != len(want) {
		t.Fatalf("terms = %v", terms)
	}
	for _, term := range terms {
		if !want[term] {
			t.Errorf("unexpected term %q", term)
		}
	}
}

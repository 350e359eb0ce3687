package formvalidator

import "testing"

func TestParseLabeledLines(t *testing.T) {
	text := "Nama: Budi, Jakarta\nSumber info: Instagram\nJenis bisnis: F&B\nBudget: Rp 50 juta\nKapan: bulan depan"
	f := Parse(text)

	if f.Biodata == nil || *f.Biodata != "Budi, Jakarta" {
		t.Errorf("unexpected biodata: %v", f.Biodata)
	}
	if f.SourceInfo == nil || *f.SourceInfo != "Instagram" {
		t.Errorf("unexpected source_info: %v", f.SourceInfo)
	}
	if f.BusinessType == nil || *f.BusinessType != "F&B" {
		t.Errorf("unexpected business_type: %v", f.BusinessType)
	}
	if f.Budget == nil || *f.Budget != "Rp 50 juta" {
		t.Errorf("unexpected budget: %v", f.Budget)
	}
	if f.StartPlan == nil || *f.StartPlan != "bulan depan" {
		t.Errorf("unexpected start_plan: %v", f.StartPlan)
	}
}

func TestParseCompoundBiodataLabel(t *testing.T) {
	text := "Nama, Domisili: Budi, Jakarta\nSumber info: Instagram\nJenis bisnis: F&B\nBudget: 100 juta\nRencana mulai: 3 bulan lagi"
	f := Parse(text)

	if f.Biodata == nil || *f.Biodata != "Budi, Jakarta" {
		t.Errorf("unexpected biodata: %v", f.Biodata)
	}
	if f.SourceInfo == nil || *f.SourceInfo != "Instagram" {
		t.Errorf("unexpected source_info: %v", f.SourceInfo)
	}
	if f.BusinessType == nil || *f.BusinessType != "F&B" {
		t.Errorf("unexpected business_type: %v", f.BusinessType)
	}
	if f.Budget == nil || *f.Budget != "100 juta" {
		t.Errorf("unexpected budget: %v", f.Budget)
	}
	if f.StartPlan == nil || *f.StartPlan != "3 bulan lagi" {
		t.Errorf("unexpected start_plan: %v", f.StartPlan)
	}

	_, valid, missing := Validate(f, nil)
	if !valid {
		t.Errorf("expected compound-label form to validate complete, missing: %v", missing)
	}
}

func TestParseFallbackKeywords(t *testing.T) {
	text := "Saya tahu dari Instagram. Bisnisnya FnB kecil. Budget sekitar Rp 20 juta. Mau mulai bulan depan."
	f := Parse(text)

	if f.SourceInfo == nil {
		t.Error("expected source_info to be found via keyword fallback")
	}
	if f.BusinessType == nil {
		t.Error("expected business_type to be found via keyword fallback")
	}
	if f.Budget == nil {
		t.Error("expected budget to be found via regex fallback")
	}
	if f.StartPlan == nil {
		t.Error("expected start_plan to be found via keyword fallback")
	}
}

func TestMergePrefersPartial(t *testing.T) {
	oldBiodata := "Budi"
	newBiodata := "Budi Santoso"
	existing := Fragment{Biodata: &oldBiodata}
	partial := Fragment{Biodata: &newBiodata}

	merged := Merge(existing, partial)
	if *merged.Biodata != "Budi Santoso" {
		t.Errorf("expected partial to win, got %q", *merged.Biodata)
	}
}

func TestMergePreservesExistingWhenPartialNil(t *testing.T) {
	oldBiodata := "Budi"
	existing := Fragment{Biodata: &oldBiodata}
	partial := Fragment{}

	merged := Merge(existing, partial)
	if merged.Biodata == nil || *merged.Biodata != "Budi" {
		t.Errorf("expected existing to be preserved, got %v", merged.Biodata)
	}
}

func TestValidateReportsMissingFields(t *testing.T) {
	biodata := "Budi"
	partial := Fragment{Biodata: &biodata}

	_, valid, missing := Validate(partial, nil)
	if valid {
		t.Error("expected incomplete form to be invalid")
	}
	if len(missing) != 4 {
		t.Errorf("expected 4 missing fields, got %d: %v", len(missing), missing)
	}
}

func TestValidateCompleteForm(t *testing.T) {
	biodata, source, biz, budget, plan := "Budi", "Instagram", "F&B", "Rp 50 juta", "bulan depan"
	partial := Fragment{
		Biodata:      &biodata,
		SourceInfo:   &source,
		BusinessType: &biz,
		Budget:       &budget,
		StartPlan:    &plan,
	}

	_, valid, missing := Validate(partial, nil)
	if !valid {
		t.Errorf("expected complete form to be valid, missing: %v", missing)
	}
	if len(missing) != 0 {
		t.Errorf("expected no missing fields, got %v", missing)
	}
}

func TestValidateMergesAcrossMessages(t *testing.T) {
	biodata := "Budi"
	existing := Fragment{Biodata: &biodata}

	source, biz, budget, plan := "Instagram", "F&B", "Rp 50 juta", "bulan depan"
	partial := Fragment{
		SourceInfo:   &source,
		BusinessType: &biz,
		Budget:       &budget,
		StartPlan:    &plan,
	}

	_, valid, missing := Validate(partial, &existing)
	if !valid {
		t.Errorf("expected merged form to be valid, missing: %v", missing)
	}
}

func TestIsFormSubmission(t *testing.T) {
	if !IsFormSubmission("Nama: Budi") {
		t.Error("expected labeled line to be detected as a form submission")
	}
	if !IsFormSubmission("saya dari instagram, bisnisnya fnb") {
		t.Error("expected 2+ keywords to be detected as a form submission")
	}
	if IsFormSubmission("halo") {
		t.Error("expected plain greeting to not be a form submission")
	}
}

func TestExplainMissing(t *testing.T) {
	if got := ExplainMissing(nil); got != "" {
		t.Errorf("expected empty explanation for no missing fields, got %q", got)
	}
	got := ExplainMissing([]string{"biodata", "budget"})
	if got == "" {
		t.Error("expected non-empty explanation")
	}
}

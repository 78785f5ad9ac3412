package analysis

import "testing"

func TestAggregateCropNoSamples(t *testing.T) {
	decision := aggregateCrop(nil, 1920, 800, false)
	if decision.Filter != "" || decision.HasMultipleRatios {
		t.Fatalf("expected no filter and no multi-ratio flag, got %+v", decision)
	}
}

func TestAggregateCropSingleRectangleUnanimous(t *testing.T) {
	crops := []string{"1920:800:0:140", "1920:800:0:140", "1920:800:0:140"}
	decision := aggregateCrop(crops, 1920, 1080, true)
	if decision.Filter != "crop=1920:800:0:140" {
		t.Errorf("expected crop filter, got %q", decision.Filter)
	}
	if !decision.IsHDR {
		t.Error("expected IsHDR=true to be preserved")
	}
	if decision.HasMultipleRatios {
		t.Error("unanimous rectangle should not set HasMultipleRatios")
	}
}

func TestAggregateCropNoOpCropIsDropped(t *testing.T) {
	// The crop rectangle matches the source dimensions exactly: no pixels removed.
	crops := []string{"1920:1080:0:0", "1920:1080:0:0"}
	decision := aggregateCrop(crops, 1920, 1080, false)
	if decision.Filter != "" {
		t.Errorf("expected empty filter for no-op crop, got %q", decision.Filter)
	}
}

func TestAggregateCropDominantRectangle(t *testing.T) {
	crops := make([]string, 0, 10)
	for i := 0; i < 9; i++ {
		crops = append(crops, "1920:800:0:140")
	}
	crops = append(crops, "1920:808:0:136")

	decision := aggregateCrop(crops, 1920, 1080, false)
	if decision.Filter != "crop=1920:800:0:140" {
		t.Errorf("expected the 90%% rectangle to win, got %q", decision.Filter)
	}
	if decision.TotalSamples != 10 {
		t.Errorf("expected TotalSamples=10, got %d", decision.TotalSamples)
	}
}

func TestAggregateCropMixedAspectRatios(t *testing.T) {
	crops := []string{
		"1920:800:0:140", "1920:800:0:140", "1920:800:0:140", "1920:800:0:140",
		"1920:1080:0:0", "1920:1080:0:0", "1920:1080:0:0",
	}
	decision := aggregateCrop(crops, 1920, 1080, false)
	if decision.Filter != "" {
		t.Errorf("expected no crop filter for mixed ratios, got %q", decision.Filter)
	}
	if !decision.HasMultipleRatios {
		t.Error("expected HasMultipleRatios=true")
	}
	if len(decision.Candidates) != 2 {
		t.Errorf("expected 2 candidates, got %d", len(decision.Candidates))
	}
}

func TestIsValidCropFormat(t *testing.T) {
	cases := map[string]bool{
		"1920:800:0:140": true,
		"1920:800:0":     false,
		"a:800:0:140":    false,
		"":                false,
	}
	for input, want := range cases {
		if got := isValidCropFormat(input); got != want {
			t.Errorf("isValidCropFormat(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestIsEffectiveCrop(t *testing.T) {
	if isEffectiveCrop("1920:1080:0:0", 1920, 1080) {
		t.Error("expected identity crop to be ineffective")
	}
	if !isEffectiveCrop("1920:800:0:140", 1920, 1080) {
		t.Error("expected a narrower crop to be effective")
	}
}

func TestOutputDimensions(t *testing.T) {
	w, h := OutputDimensions(1920, 1080, "")
	if w != 1920 || h != 1080 {
		t.Errorf("expected source dimensions with no filter, got %dx%d", w, h)
	}
	w, h = OutputDimensions(1920, 1080, "crop=1920:800:0:140")
	if w != 1920 || h != 800 {
		t.Errorf("expected cropped dimensions 1920x800, got %dx%d", w, h)
	}
}

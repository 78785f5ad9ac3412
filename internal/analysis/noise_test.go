package analysis

import "testing"

func TestCalculateHQDN3DParamsSDR(t *testing.T) {
	cases := []struct {
		noise float64
		want  string
	}{
		{0.5, "1:0.8:2:2"},
		{0.65, "2:1.5:3:2.5"},
		{0.75, "3:2.5:4:3.5"},
		{0.85, "4:3.5:5:4.5"},
	}
	for _, c := range cases {
		if got := calculateHQDN3DParams(c.noise, false); got != c.want {
			t.Errorf("calculateHQDN3DParams(%v, false) = %q, want %q", c.noise, got, c.want)
		}
	}
}

func TestCalculateHQDN3DParamsHDR(t *testing.T) {
	cases := []struct {
		noise float64
		want  string
	}{
		{0.5, "0.5:0.4:1.5:1.5"},
		{0.65, "1:0.8:2.5:2"},
		{0.75, "2:1.5:3.5:3"},
		{0.85, "3:2.5:4.5:4"},
	}
	for _, c := range cases {
		if got := calculateHQDN3DParams(c.noise, true); got != c.want {
			t.Errorf("calculateHQDN3DParams(%v, true) = %q, want %q", c.noise, got, c.want)
		}
	}
}

func TestCalculateFilmGrainLevelSDR(t *testing.T) {
	cases := []struct {
		noise float64
		want  uint8
	}{
		{0.5, minFilmGrainLevel},
		{0.65, 6},
		{0.75, 10},
		{0.85, maxFilmGrainLevel},
	}
	for _, c := range cases {
		if got := calculateFilmGrainLevel(c.noise, false); got != c.want {
			t.Errorf("calculateFilmGrainLevel(%v, false) = %d, want %d", c.noise, got, c.want)
		}
	}
}

func TestCalculateFilmGrainLevelHDR(t *testing.T) {
	cases := []struct {
		noise float64
		want  uint8
	}{
		{0.5, minFilmGrainLevel},
		{0.65, 5},
		{0.75, 8},
		{0.85, 12},
	}
	for _, c := range cases {
		if got := calculateFilmGrainLevel(c.noise, true); got != c.want {
			t.Errorf("calculateFilmGrainLevel(%v, true) = %d, want %d", c.noise, got, c.want)
		}
	}
}

func TestFilmGrainLevelBounds(t *testing.T) {
	if calculateFilmGrainLevel(0.9, false) > maxFilmGrainLevel {
		t.Error("SDR high-noise film grain must not exceed 16")
	}
	if calculateFilmGrainLevel(0.9, true) >= maxFilmGrainLevel {
		t.Error("HDR high-noise film grain must stay below the SDR max (12 < 16)")
	}
}

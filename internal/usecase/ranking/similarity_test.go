package ranking

import (
	"math"
	"testing"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite clamps", []float32{1, 0}, []float32{-1, 0}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1}, []float32{1, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Cosine(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cosine() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDistanceToSimilarity(t *testing.T) {
	tests := []struct {
		d    float64
		want float64
	}{
		{0, 0.95},
		{0.25, 0.90},
		{0.5, 0.85},
		{0.75, 0.75},
		{1.0, 0.65},
		{1.25, 0.575},
		{1.5, 0.50},
		{1.75, 0.30},
		{2.0, 0.10},
		{3.0, 0.10},
		{-0.3, 0.95},
	}
	for _, tt := range tests {
		if got := DistanceToSimilarity(tt.d); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("DistanceToSimilarity(%v) = %v, want %v", tt.d, got, tt.want)
		}
	}
	if got := DistanceToSimilarity(math.NaN()); got != 0 {
		t.Errorf("NaN distance = %v", got)
	}
}

func TestDistanceToSimilarity_Monotone(t *testing.T) {
	prev := DistanceToSimilarity(0)
	for d := 0.01; d <= 2.5; d += 0.01 {
		s := DistanceToSimilarity(d)
		if s > prev+1e-12 {
			t.Fatalf("not monotone at %v: %v > %v", d, s, prev)
		}
		if s < 0 || s > 1 {
			t.Fatalf("out of range at %v: %v", d, s)
		}
		prev = s
	}
}

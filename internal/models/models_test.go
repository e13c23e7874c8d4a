package models

import "testing"

func TestGenerationRequest_Count(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"absent defaults to one", 0, 1},
		{"one", 1, 1},
		{"five", 5, 5},
		{"negative runs nothing", -3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &GenerationRequest{Prompt: "x", NumImages: tt.in}
			if got := req.Count(); got != tt.want {
				t.Errorf("Count() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGenerationResult_Partial(t *testing.T) {
	full := &GenerationResult{Requested: 2, Succeeded: 2}
	if full.Partial() {
		t.Error("2 of 2 should not be partial")
	}
	partial := &GenerationResult{Requested: 3, Succeeded: 1, Failed: 2}
	if !partial.Partial() {
		t.Error("1 of 3 should be partial")
	}
}

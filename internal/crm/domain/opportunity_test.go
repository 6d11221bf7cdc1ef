package domain

import "testing"

func TestCanTransitionStage(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{StageNew, StageQualified, true},
		{StageNew, StageLost, true},
		{StageNew, StageProposal, false},
		{StageNew, StageWon, false},
		{StageQualified, StageProposal, true},
		{StageQualified, StageLost, true},
		{StageQualified, StageWon, false},
		{StageQualified, StageNew, false},
		{StageProposal, StageNegotiation, true},
		{StageProposal, StageWon, true},
		{StageProposal, StageLost, true},
		{StageProposal, StageQualified, false},
		{StageNegotiation, StageWon, true},
		{StageNegotiation, StageLost, true},
		{StageNegotiation, StageProposal, false},
		{StageWon, StageLost, false},
		{StageWon, StageNew, false},
		{StageLost, StageNew, false},
		{StageLost, StageQualified, false},
		{"bogus", StageNew, false},
	}

	for _, tt := range tests {
		if got := CanTransitionStage(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransitionStage(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestIsTerminalStage(t *testing.T) {
	for _, stage := range []string{StageNew, StageQualified, StageProposal, StageNegotiation} {
		if IsTerminalStage(stage) {
			t.Errorf("IsTerminalStage(%q) = true, want false", stage)
		}
	}
	for _, stage := range []string{StageWon, StageLost} {
		if !IsTerminalStage(stage) {
			t.Errorf("IsTerminalStage(%q) = false, want true", stage)
		}
	}
}

func TestOpportunityValue(t *testing.T) {
	tests := []struct {
		name  string
		cents int64
		want  float64
	}{
		{"whole units", 250000, 2500},
		{"fractional", 199, 1.99},
		{"zero", 0, 0},
		{"negative clamped", -500, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opp := Opportunity{ValueCents: tt.cents}
			if got := opp.Value(); got != tt.want {
				t.Errorf("Value() = %v, want %v", got, tt.want)
			}
		})
	}
}

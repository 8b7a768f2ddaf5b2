package phase

import "testing"

func TestMachine_StartsCollecting(t *testing.T) {
	m := NewMachine(nil)
	if m.Current() != CollectingRequirements {
		t.Fatalf("initial phase: %s", m.Current())
	}
	if m.Requirement() != "" {
		t.Fatal("no requirement before confirmation")
	}
}

func TestMachine_ConfirmationRequiresSentinel(t *testing.T) {
	m := NewMachine(nil)

	if m.NoteProductTurn("I still have questions about your app") {
		t.Fatal("plain product output must not confirm")
	}
	if m.Current() != CollectingRequirements {
		t.Fatalf("phase moved: %s", m.Current())
	}

	content := ConfirmationSentinel + "\nHere is the full requirement summary."
	if !m.NoteProductTurn(content) {
		t.Fatal("sentinel must confirm")
	}
	if m.Current() != RequirementConfirmed {
		t.Fatalf("phase: %s", m.Current())
	}
	if m.Requirement() != content {
		t.Fatalf("requirement not recorded: %q", m.Requirement())
	}
}

func TestMachine_ConfirmationOnlyFiresWhileCollecting(t *testing.T) {
	m := NewMachine(nil)
	m.NoteProductTurn(ConfirmationSentinel)
	if m.NoteProductTurn(ConfirmationSentinel) {
		t.Fatal("confirmation must not re-fire outside collecting_requirements")
	}
}

func TestMachine_ForwardPath(t *testing.T) {
	m := NewMachine(nil)
	if m.AdvanceToArchitecture() {
		t.Fatal("cannot reach architecture before confirmation")
	}
	m.NoteProductTurn(ConfirmationSentinel)
	if !m.AdvanceToArchitecture() {
		t.Fatal("confirmed -> architecture must be legal")
	}
	if m.Current() != ArchitectureActive {
		t.Fatalf("phase: %s", m.Current())
	}
	if !m.BeginImplementation() {
		t.Fatal("architecture -> implementation must be legal")
	}
	if m.Current() != ImplementationActive {
		t.Fatalf("phase: %s", m.Current())
	}
	if m.BeginImplementation() {
		t.Fatal("implementation must not re-fire")
	}
}

func TestMachine_PhaseIsAlwaysOneOfFour(t *testing.T) {
	valid := map[Phase]bool{
		CollectingRequirements: true,
		RequirementConfirmed:   true,
		ArchitectureActive:     true,
		ImplementationActive:   true,
	}
	m := NewMachine(nil)
	steps := []func(){
		func() { m.NoteProductTurn(ConfirmationSentinel) },
		func() { m.AdvanceToArchitecture() },
		func() { m.BeginImplementation() },
		func() { m.Reset() },
		func() { m.AdvanceToArchitecture() }, // illegal from collecting
	}
	for i, step := range steps {
		step()
		if !valid[m.Current()] {
			t.Fatalf("step %d left machine in unknown phase %q", i, m.Current())
		}
	}
}

func TestMachine_ResetFromAnyState(t *testing.T) {
	m := NewMachine(nil)
	m.NoteProductTurn(ConfirmationSentinel)
	m.AdvanceToArchitecture()
	m.BeginImplementation()

	m.Reset()
	if m.Current() != CollectingRequirements {
		t.Fatalf("phase after reset: %s", m.Current())
	}
	if m.Requirement() != "" {
		t.Fatal("reset must discard the confirmed requirement")
	}
}

func TestWantsRevision(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"Please change the requirement: support teams", true},
		{"Actually I want a mobile app instead", true},
		{"Let's revise the scope", true},
		{"SCRAP THAT, new idea", true},
		{"Looks good, please continue", false},
		{"How is the architecture coming along?", false},
	}
	for _, tc := range cases {
		if got := WantsRevision(tc.input); got != tc.want {
			t.Fatalf("WantsRevision(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestSentinelClassifier_CustomSentinel(t *testing.T) {
	c := SentinelClassifier{Sentinel: "<<DONE>>"}
	if !c.Confirmed("prefix <<DONE>> suffix") {
		t.Fatal("custom sentinel not matched")
	}
	if c.Confirmed(ConfirmationSentinel) {
		t.Fatal("default sentinel must not match a custom classifier")
	}
}

// Package phase tracks which stage of the collaboration is active and detects
// the textual signals that move it forward or reset it.
package phase

import (
	"strings"
	"sync"
)

type Phase string

const (
	CollectingRequirements Phase = "collecting_requirements"
	RequirementConfirmed   Phase = "requirement_confirmed"
	ArchitectureActive     Phase = "architecture_active"
	ImplementationActive   Phase = "implementation_active"
)

// validTransitions defines the forward edges. The reset edge back to
// CollectingRequirements is legal from any state and handled separately.
var validTransitions = map[Phase]map[Phase]bool{
	CollectingRequirements: {RequirementConfirmed: true},
	RequirementConfirmed:   {ArchitectureActive: true},
	ArchitectureActive:     {ImplementationActive: true},
}

// Classifier decides whether a product-role turn confirms the requirements.
// Abstractly a two-outcome classifier; the shipped implementation matches a
// sentinel substring, but the rule can be swapped without touching the machine.
type Classifier interface {
	Confirmed(content string) bool
}

// ConfirmationSentinel is the fixed substring the product charter instructs
// the role to emit when requirements are complete.
const ConfirmationSentinel = "[REQUIREMENTS CONFIRMED]"

// SentinelClassifier is the default Classifier: plain substring matching.
type SentinelClassifier struct {
	Sentinel string
}

func (c SentinelClassifier) Confirmed(content string) bool {
	s := c.Sentinel
	if s == "" {
		s = ConfirmationSentinel
	}
	return strings.Contains(content, s)
}

// modificationLexicon marks human input that reopens the requirements.
var modificationLexicon = []string{
	"change the requirement",
	"modify the requirement",
	"revise",
	"instead i want",
	"actually i want",
	"scrap that",
	"start over",
}

// WantsRevision reports whether human input matches the modification-intent
// lexicon.
func WantsRevision(input string) bool {
	lower := strings.ToLower(input)
	for _, kw := range modificationLexicon {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Machine is the phase state machine. It is the only writer of the current
// phase; the dispatcher reads it to decide which role acts next.
type Machine struct {
	mu          sync.Mutex
	current     Phase
	requirement string
	classifier  Classifier
}

func NewMachine(classifier Classifier) *Machine {
	if classifier == nil {
		classifier = SentinelClassifier{}
	}
	return &Machine{current: CollectingRequirements, classifier: classifier}
}

func (m *Machine) Current() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Requirement returns the confirmed requirement text, empty until confirmation.
func (m *Machine) Requirement() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requirement
}

// NoteProductTurn evaluates a product-role response. When the classifier
// recognizes a confirmation and the machine is still collecting, the machine
// moves to RequirementConfirmed, records the confirmed text, and returns true.
// Confirmation sentinels in any other role's output never reach this method.
func (m *Machine) NoteProductTurn(content string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != CollectingRequirements {
		return false
	}
	if !m.classifier.Confirmed(content) {
		return false
	}
	m.current = RequirementConfirmed
	m.requirement = content
	return true
}

// AdvanceToArchitecture fires after the confirmation transition's scheduled
// invocation begins. Returns false if the machine moved elsewhere meanwhile.
func (m *Machine) AdvanceToArchitecture() bool {
	return m.advance(RequirementConfirmed, ArchitectureActive)
}

// BeginImplementation fires once the architecture invocation has completed.
func (m *Machine) BeginImplementation() bool {
	return m.advance(ArchitectureActive, ImplementationActive)
}

func (m *Machine) advance(from, to Phase) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != from || !validTransitions[from][to] {
		return false
	}
	m.current = to
	return true
}

// Reset is the edge back to CollectingRequirements from any state. The
// confirmed requirement is discarded.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = CollectingRequirements
	m.requirement = ""
}

package orchestra

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/orchestraai/orchestra/internal/conversation"
	"github.com/orchestraai/orchestra/internal/llm"
	"github.com/orchestraai/orchestra/internal/phase"
)

// ErrEmptyInput is returned for blank human input. Malformed payloads are
// rejected at the transport boundary before reaching the dispatcher; this is
// the last line.
var ErrEmptyInput = errors.New("empty input")

// Dispatcher orchestrates a full round: record the triggering input, build the
// role-specific prompt, invoke the generation backend, record the response,
// and evaluate phase transitions.
//
// All mutations to the log, the summaries, and the phase happen under a single
// dispatch-in-flight lock. The scheduled auto-advance re-enters the same lock,
// so appends never interleave in a way that breaks epoch-marker ordering.
type Dispatcher struct {
	mu sync.Mutex

	log       *conversation.Log
	selector  *conversation.Selector
	compactor *conversation.Compactor
	machine   *phase.Machine
	client    *llm.Client
	models    *ModelState
	publish   func(conversation.Turn)
	logger    *log.Logger
	baseCtx   context.Context

	productResponses int

	advMu       sync.Mutex
	advanceDone chan struct{}
}

type DispatcherDeps struct {
	Log       *conversation.Log
	Selector  *conversation.Selector
	Compactor *conversation.Compactor
	Machine   *phase.Machine
	Client    *llm.Client
	Models    *ModelState
	Publish   func(conversation.Turn)
	Logger    *log.Logger
	BaseCtx   context.Context
}

func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	if deps.Publish == nil {
		deps.Publish = func(conversation.Turn) {}
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	if deps.BaseCtx == nil {
		deps.BaseCtx = context.Background()
	}
	closed := make(chan struct{})
	close(closed)
	return &Dispatcher{
		log:         deps.Log,
		selector:    deps.Selector,
		compactor:   deps.Compactor,
		machine:     deps.Machine,
		client:      deps.Client,
		models:      deps.Models,
		publish:     deps.Publish,
		logger:      deps.Logger,
		baseCtx:     deps.BaseCtx,
		advanceDone: closed,
	}
}

// SubmitHumanInput is the only way external actors feed the core. Backend
// failures never propagate: they surface as error turns in the log.
func (d *Dispatcher) SubmitHumanInput(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyInput
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	current := d.machine.Current()
	revision := current != phase.CollectingRequirements && phase.WantsRevision(text)
	guidance := current != phase.CollectingRequirements && !revision

	human := conversation.NewTurn(conversation.RoleHuman, conversation.KindUserInput, text)
	if guidance {
		human.Metadata = map[string]any{"guidance": true}
	}
	d.append(human)

	if guidance {
		// Post-confirmation input that does not reopen requirements is
		// recorded but never forwarded as a generation trigger.
		return nil
	}
	if revision {
		d.machine.Reset()
		// The reopened round starts a fresh collection cycle; the reminder
		// counter belongs to the discarded one.
		d.productResponses = 0
		d.appendTransition(fmt.Sprintf("requirements reopened by the human, back to %s", phase.CollectingRequirements))
	}

	d.invokeProduct(ctx, text)
	return nil
}

// invokeProduct runs the product-role round for fresh human input. Callers
// hold the dispatch lock.
func (d *Dispatcher) invokeProduct(ctx context.Context, input string) {
	if d.compactor.ShouldCompact() {
		d.compactor.Compact(ctx)
	}

	intent := d.classify(ctx, input)

	charter := ProductCharter(intent)
	if d.productResponses >= 2 {
		charter += "\n" + SummarizeReminder
	}

	content, ok := d.invokeRole(ctx, conversation.RoleProduct, charter, input)
	if !ok {
		return
	}
	d.productResponses++

	if d.machine.NoteProductTurn(content) {
		d.appendTransition(fmt.Sprintf("requirement confirmed, handing off to the architect (%s)", phase.RequirementConfirmed))
		d.scheduleAdvance()
	}
}

// classify runs the context-free utterance classification pre-pass. Failure
// falls back to the default intent and is never fatal.
func (d *Dispatcher) classify(ctx context.Context, input string) Intent {
	resp, err := d.client.Generate(ctx, llm.Request{
		Model:  d.models.Selected(),
		Prompt: DiscriminationPrompt + input,
	})
	if err != nil {
		d.logger.Printf("utterance classification failed, assuming wish: %v", err)
		return IntentWish
	}
	intent := ParseIntent(resp.Content)
	note := conversation.NewTurn(conversation.RoleEther, conversation.KindSystemInfo,
		fmt.Sprintf("input classified as %s", intent))
	note.Metadata = map[string]any{"intent": string(intent)}
	d.append(note)
	return intent
}

// invokeRole builds the prompt, records it for transparency, calls the
// backend, and appends either the role's response or an error turn. Returns
// the response content and whether the call succeeded.
func (d *Dispatcher) invokeRole(ctx context.Context, role conversation.Role, charter, input string) (string, bool) {
	sys := charter
	if cc := d.selector.Select(role).Render(); cc != "" {
		sys += "\n" + cc
	}

	prompt := conversation.NewTurn(conversation.RoleEther, conversation.KindSystemInfo, sys)
	prompt.Metadata = map[string]any{"prompt_for": string(role)}
	d.append(prompt)

	resp, err := d.client.Complete(ctx, llm.Request{
		Model: d.models.Selected(),
		Messages: []llm.Message{
			llm.System(sys),
			llm.User(input),
		},
	})
	if err != nil {
		d.logger.Printf("%s invocation failed: %v", role, err)
		d.append(conversation.NewTurn(conversation.RoleEther, conversation.KindError,
			fmt.Sprintf("generation failed for %s: %v", role.DisplayName(), err)))
		return "", false
	}

	d.append(conversation.NewTurn(role, conversation.KindAIResponse, resp.Content))
	return resp.Content, true
}

// scheduleAdvance launches the detached auto-advance task that carries the
// conversation from requirement_confirmed into architecture. The task
// serializes with the main path by re-entering the dispatch lock; AdvanceDone
// gives tests and callers a deterministic join point.
func (d *Dispatcher) scheduleAdvance() {
	d.advMu.Lock()
	ch := make(chan struct{})
	d.advanceDone = ch
	d.advMu.Unlock()

	go func() {
		defer close(ch)
		d.mu.Lock()
		defer d.mu.Unlock()
		d.runAdvance(d.baseCtx)
	}()
}

// runAdvance performs the architecture invocation. Callers hold the dispatch lock.
func (d *Dispatcher) runAdvance(ctx context.Context) {
	if !d.machine.AdvanceToArchitecture() {
		return
	}
	if d.compactor.ShouldCompact() {
		d.compactor.Compact(ctx)
	}

	input := "Confirmed product requirement:\n" + d.machine.Requirement() + `

Analyze this requirement and produce the technical design:
1. Break it into concrete implementation steps.
2. Identify dependencies between steps.
3. Lay out the file and directory structure.
4. Draft the development plan.`

	if _, ok := d.invokeRole(ctx, conversation.RoleArchitect, Charter(conversation.RoleArchitect), input); ok {
		d.machine.BeginImplementation()
	}
}

// AdvanceDone returns a channel closed when the most recently scheduled
// auto-advance has completed. Closed immediately if none is in flight.
func (d *Dispatcher) AdvanceDone() <-chan struct{} {
	d.advMu.Lock()
	defer d.advMu.Unlock()
	return d.advanceDone
}

func (d *Dispatcher) append(t conversation.Turn) {
	stored, err := d.log.Append(t)
	if err != nil {
		// Only invalid construction can fail here, which would be a bug.
		d.logger.Printf("drop turn: %v", err)
		return
	}
	d.publish(stored)
}

func (d *Dispatcher) appendTransition(msg string) {
	t := conversation.NewTurn(conversation.RoleEther, conversation.KindSystemInfo, msg)
	t.Metadata = map[string]any{"transition": true}
	d.append(t)
}

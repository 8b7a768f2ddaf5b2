// Package orchestra wires the conversation core together: role charters, the
// utterance classifier, and the turn dispatcher.
package orchestra

import (
	"strings"

	"github.com/orchestraai/orchestra/internal/conversation"
	"github.com/orchestraai/orchestra/internal/phase"
)

// Intent is the utterance kind assigned to fresh human input by a context-free
// classification call. It selects which product-charter variant frames the
// product role's reply.
type Intent string

const (
	IntentWish    Intent = "wish"
	IntentWhy     Intent = "why_question"
	IntentHow     Intent = "how_question"
	IntentWhat    Intent = "what_question"
	IntentReflect Intent = "reflection"
	IntentSuggest Intent = "suggestion"
)

// intentByDigit maps the classifier's single-digit answer to an intent.
// Unrecognized answers fall back to IntentWish.
var intentByDigit = map[string]Intent{
	"1": IntentWish,
	"2": IntentWhy,
	"3": IntentHow,
	"4": IntentWhat,
	"5": IntentReflect,
	"6": IntentSuggest,
}

// DiscriminationPrompt asks the backend to classify a human utterance. The
// reply must be a single option digit.
const DiscriminationPrompt = `Classify the new human message below into exactly one of these kinds:
1. Expresses a wish or an idea
2. Asks why (questions a motivation)
3. Asks how (questions an implementation)
4. Asks what (questions a concept)
5. Affirms or rejects something
6. Offers a tentative suggestion

Reply with the option digit only, nothing else.

New human message:
`

// ParseIntent maps a raw classifier reply to an Intent.
func ParseIntent(reply string) Intent {
	digit := strings.TrimSpace(reply)
	if len(digit) > 1 {
		digit = digit[:1]
	}
	if in, ok := intentByDigit[digit]; ok {
		return in
	}
	return IntentWish
}

const productCharterBase = `You are the product role in a multi-AI collaboration. You own requirement
analysis and product design.

While collecting requirements:
1. Ask the human concrete questions to pin down the details. Prefer multiple
   choice over open questions.
2. Work out which aspects the human cares about and which are indifferent.
3. After every reply, judge whether you have enough to design the product.

When you judge the information sufficient, you must:
1. Start your reply with the marker ` + phase.ConfirmationSentinel + `
2. Give a complete requirement summary: core features, user roles and
   permissions, key flows, technical constraints, priorities.
3. Ask the human to confirm the summary before it is handed to the architect.

Do not question the human endlessly; three to five rounds normally suffice.
`

// productVariants prepend an intent-specific framing to the base charter.
var productVariants = map[Intent]string{
	IntentWish: `The human just expressed a wish. Keep guessing the underlying pain point until
the human agrees — do not ask them directly why they want this.

`,
	IntentWhy: `The human is questioning a motivation. Explain the reasoning behind the current
direction before asking anything new.

`,
	IntentHow: `The human is asking how something would be built. Answer at the product level
and defer implementation detail to the architect.

`,
	IntentWhat: `The human is asking about a concept. Define it plainly, then steer back to the
open requirement questions.

`,
	IntentReflect: `The human just affirmed or rejected something. Acknowledge it explicitly and
update your running requirement picture before continuing.

`,
	IntentSuggest: `The human floated a tentative suggestion. Weigh it openly: say what it would
improve and what it would cost.

`,
}

const architectCharter = `You are the architect role in a multi-AI collaboration. You own the technical
design and the task breakdown.
1. Turn the confirmed product requirement into concrete implementation steps.
2. Identify which steps can run in parallel and which depend on each other.
3. Hand dependent steps to the interface role for interface design.
4. Lay out the file and directory structure.
5. Assign executable tasks to the programmer role.

Keep the design sound and the breakdown clear enough for parallel work.
`

const interfaceCharter = `You are the interface role in a multi-AI collaboration. You design the
interfaces between modules: data structures, function signatures, API shapes.
Keep them consistent, documented, and easy to integrate against.
`

const programmerCharter = `You are the programmer role in a multi-AI collaboration. You implement the
tasks the architect assigns, following the interface role's specifications.
Write clear, maintainable code with sensible error handling.
`

// SummarizeReminder is injected into the product prompt once the product role
// has already produced a couple of responses, nudging it toward summarizing
// and confirming instead of asking another round of questions.
const SummarizeReminder = `Reminder: you have already asked several rounds of questions. If the picture
is complete enough, summarize the requirements now and ask for confirmation.
`

// Charter returns the static charter for a role. The product charter is
// intent-sensitive; ask for it via ProductCharter.
func Charter(role conversation.Role) string {
	switch role {
	case conversation.RoleProduct:
		return ProductCharter(IntentWish)
	case conversation.RoleArchitect:
		return architectCharter
	case conversation.RoleInterface:
		return interfaceCharter
	case conversation.RoleProgrammer:
		return programmerCharter
	default:
		return ""
	}
}

// ProductCharter returns the product charter framed for the given intent.
func ProductCharter(intent Intent) string {
	variant, ok := productVariants[intent]
	if !ok {
		variant = productVariants[IntentWish]
	}
	return variant + productCharterBase
}

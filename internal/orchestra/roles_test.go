package orchestra

import (
	"strings"
	"testing"

	"github.com/orchestraai/orchestra/internal/conversation"
	"github.com/orchestraai/orchestra/internal/phase"
)

func TestCharterPerRole(t *testing.T) {
	cases := []struct {
		role conversation.Role
		want string
	}{
		{conversation.RoleProduct, "product role"},
		{conversation.RoleArchitect, "architect role"},
		{conversation.RoleInterface, "interface role"},
		{conversation.RoleProgrammer, "programmer role"},
	}
	for _, tc := range cases {
		got := Charter(tc.role)
		if !strings.Contains(got, tc.want) {
			t.Errorf("Charter(%s): missing %q", tc.role, tc.want)
		}
	}
	if Charter(conversation.RoleHuman) != "" {
		t.Error("non-AI roles have no charter")
	}
	if Charter(conversation.RoleEther) != "" {
		t.Error("non-AI roles have no charter")
	}
}

func TestProductCharterCarriesSentinelInstruction(t *testing.T) {
	for _, intent := range []Intent{IntentWish, IntentWhy, IntentHow, IntentWhat, IntentReflect, IntentSuggest} {
		c := ProductCharter(intent)
		if !strings.Contains(c, phase.ConfirmationSentinel) {
			t.Errorf("ProductCharter(%s): missing confirmation sentinel instruction", intent)
		}
	}
	// Unknown intents fall back to the wish framing.
	if ProductCharter(Intent("bogus")) != ProductCharter(IntentWish) {
		t.Error("unknown intent must fall back to the wish variant")
	}
}

func TestParseIntent(t *testing.T) {
	cases := []struct {
		reply string
		want  Intent
	}{
		{"1", IntentWish},
		{"2", IntentWhy},
		{"3", IntentHow},
		{"4", IntentWhat},
		{"5", IntentReflect},
		{"6", IntentSuggest},
		{" 2 ", IntentWhy},
		{"3. Asks how", IntentHow},
		{"7", IntentWish},
		{"no idea", IntentWish},
		{"", IntentWish},
	}
	for _, tc := range cases {
		if got := ParseIntent(tc.reply); got != tc.want {
			t.Errorf("ParseIntent(%q): got %s want %s", tc.reply, got, tc.want)
		}
	}
}

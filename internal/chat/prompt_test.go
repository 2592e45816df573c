package chat

import (
	"strings"
	"testing"
)

func TestBuildPrompt_EndsWithContinuationMarker(t *testing.T) {
	out := BuildPrompt(DefaultInstructions, "Name: Jane\n", nil, "What do you do?")

	if !strings.HasSuffix(out, "User: What do you do?\nAssistant:") {
		t.Errorf("prompt should end with the new message and marker, got tail %q",
			out[max(0, len(out)-60):])
	}
}

func TestBuildPrompt_HistoryOrderPreserved(t *testing.T) {
	history := []Turn{
		{Role: RoleUser, Text: "hi"},
		{Role: RoleAssistant, Text: "hello"},
	}
	out := BuildPrompt("", "", history, "bye")

	userIdx := strings.Index(out, "User: hi")
	assistantIdx := strings.Index(out, "Assistant: hello")
	if userIdx == -1 || assistantIdx == -1 {
		t.Fatalf("history turns missing:\n%s", out)
	}
	if userIdx > assistantIdx {
		t.Errorf("history reordered:\n%s", out)
	}
}

func TestBuildPrompt_EmptyInputs(t *testing.T) {
	out := BuildPrompt("", "", nil, "q")
	if out != "User: q\nAssistant:" {
		t.Errorf("unexpected prompt for empty sections: %q", out)
	}
}

func TestBuildPrompt_UnknownRoleTreatedAsUser(t *testing.T) {
	out := BuildPrompt("", "", []Turn{{Role: "system", Text: "sneaky"}}, "q")
	if !strings.Contains(out, "User: sneaky") {
		t.Errorf("unknown role should render as User:\n%s", out)
	}
}

func TestCapHistory(t *testing.T) {
	history := []Turn{
		{Role: RoleUser, Text: "one"},
		{Role: RoleAssistant, Text: "two"},
		{Role: RoleUser, Text: "three"},
		{Role: RoleAssistant, Text: "four"},
	}

	capped := capHistory(history, 2)
	if len(capped) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(capped))
	}
	if capped[0].Text != "three" || capped[1].Text != "four" {
		t.Errorf("expected most recent turns kept, got %+v", capped)
	}

	if got := capHistory(history, 0); len(got) != 4 {
		t.Errorf("zero cap should keep everything, got %d", len(got))
	}
	if got := capHistory(history, 10); len(got) != 4 {
		t.Errorf("oversized cap should keep everything, got %d", len(got))
	}
}

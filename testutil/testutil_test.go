package testutil

import (
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	llm "github.com/randalmurphal/llmkit/claude"
)

func complete(t *testing.T, client *llm.MockClient, prompt string) string {
	t.Helper()

	resp, err := client.Complete(TestContext(t), llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: prompt}},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	return resp.Content
}

func TestScriptedClientDispatch(t *testing.T) {
	client := NewScriptedClient(Script{
		Analysis: "refined",
		Code:     "code v1",
		Docs:     "docs",
		Tests:    "tests",
	})

	if got := complete(t, client, "You are a Requirement Analysis Agent."); got != "refined" {
		t.Errorf("analysis = %q, want %q", got, "refined")
	}
	if got := complete(t, client, "You are an expert Coding Agent."); got != "code v1" {
		t.Errorf("code = %q, want %q", got, "code v1")
	}
	if got := complete(t, client, "You are a Documentation Agent."); got != "docs" {
		t.Errorf("docs = %q, want %q", got, "docs")
	}
	if got := complete(t, client, "You are a Test Case Generation Agent."); got != "tests" {
		t.Errorf("tests = %q, want %q", got, "tests")
	}
}

func TestScriptedClientReviewLoop(t *testing.T) {
	client := NewScriptedClient(Script{
		Rejections: []string{"missing error handling"},
		Revisions:  []string{"code v2"},
	})

	first := complete(t, client, "You are a Code Review Agent.")
	var verdict struct {
		Approved bool   `json:"approved"`
		Feedback string `json:"feedback"`
	}
	if err := json.Unmarshal([]byte(first), &verdict); err != nil {
		t.Fatalf("first review is not JSON: %v", err)
	}
	if verdict.Approved {
		t.Error("first review approved, want rejection")
	}
	if verdict.Feedback != "missing error handling" {
		t.Errorf("feedback = %q", verdict.Feedback)
	}

	if got := complete(t, client, "Review Feedback:\nmissing error handling"); got != "code v2" {
		t.Errorf("revision = %q, want %q", got, "code v2")
	}

	second := complete(t, client, "You are a Code Review Agent.")
	if err := json.Unmarshal([]byte(second), &verdict); err != nil {
		t.Fatalf("second review is not JSON: %v", err)
	}
	if !verdict.Approved {
		t.Error("second review rejected, want approval")
	}
}

func TestScriptedClientDefaults(t *testing.T) {
	client := NewScriptedClient(Script{})

	if got := complete(t, client, "anything"); got != DefaultAnalysis {
		t.Errorf("default analysis = %q", got)
	}
	if got := complete(t, client, "You are an expert Coding Agent."); got != DefaultCode {
		t.Errorf("default code = %q", got)
	}
}

func TestScriptedClientError(t *testing.T) {
	wantErr := errors.New("provider down")
	client := NewScriptedClient(Script{Err: wantErr})

	_, err := client.Complete(TestContext(t), llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "x"}},
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
}

func TestRejectingClientAlwaysRejects(t *testing.T) {
	client := RejectingClient("never good enough")

	for i := 0; i < 3; i++ {
		got := complete(t, client, "You are a Code Review Agent.")
		if !strings.Contains(got, `"approved":false`) && !strings.Contains(got, `"approved": false`) {
			t.Errorf("review %d = %q, want rejection", i+1, got)
		}
	}
}

func TestTempFile(t *testing.T) {
	path := TempFileString(t, "req.md", "build a thing")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading temp file: %v", err)
	}
	if string(data) != "build a thing" {
		t.Errorf("content = %q", data)
	}
}

package lark

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestAnswerLoadingFooter(t *testing.T) {
	fresh, _ := json.Marshal(Answer("partial", true))
	if !strings.Contains(string(fresh), "Loading...") {
		t.Error("fresh answer missing loading footer")
	}

	final, _ := json.Marshal(Answer("done", false))
	if strings.Contains(string(final), "Loading...") {
		t.Error("final answer still shows loading footer")
	}
}

func TestOrderTypeListFiltersCatalog(t *testing.T) {
	raw, _ := json.Marshal(OrderTypeList("bug"))
	s := string(raw)
	if !strings.Contains(s, "bug_platform") || !strings.Contains(s, "bug_integration") {
		t.Error("bug options missing")
	}
	if strings.Contains(s, "permission_ota") {
		t.Error("unrelated service leaked into type list")
	}
	if !strings.Contains(s, "Choose Bug Feedback Type") {
		t.Error("placeholder not specialized")
	}
}

func TestOrderShowMentions(t *testing.T) {
	raw, _ := json.Marshal(OrderShow("⌛️Process-Order-20240101000000", "U1", "A1", "need access", time.Now()))
	s := string(raw)
	if !strings.Contains(s, AtUser("U1")) || !strings.Contains(s, AtUser("A1")) {
		t.Error("applicant/operator mentions missing")
	}
	if !strings.Contains(s, "need access") {
		t.Error("description missing")
	}
}

package help

import (
	"strings"
	"testing"
)

func TestQUICKREFNonEmpty(t *testing.T) {
	if len(QUICKREF) == 0 {
		t.Fatal("QUICKREF is empty")
	}
}

func TestQUICKREFContainsVersion(t *testing.T) {
	if !strings.Contains(QUICKREF, "v0.1") {
		t.Error("QUICKREF does not contain version string v0.1")
	}
}

func TestQUICKREFListsTopics(t *testing.T) {
	for _, topic := range TopicList {
		if !strings.Contains(QUICKREF, topic) {
			t.Errorf("QUICKREF does not mention topic %q", topic)
		}
	}
}

func TestTopicListMatchesTopics(t *testing.T) {
	for _, name := range TopicList {
		if _, ok := Topics[name]; !ok {
			t.Errorf("TopicList entry %q not in Topics map", name)
		}
	}
	if len(TopicList) != len(Topics) {
		t.Errorf("TopicList has %d entries, Topics %d", len(TopicList), len(Topics))
	}
}

func TestTopicsNonEmpty(t *testing.T) {
	for name, content := range Topics {
		if len(content) == 0 {
			t.Errorf("topic %q has empty content", name)
		}
	}
}

func TestMatchTopic(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"syntax", "syntax"},
		{"SYNTAX", "syntax"},
		{" flow ", "flow"},
		{"diag", "diagnostics"},
		{"ex", "examples"},
		{"rev", "reversibility"},
		{"rvrs", "reversibility"},
		{"bltn", "builtins"},
	}
	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			name, content, err := MatchTopic(tc.query)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if name != tc.want {
				t.Errorf("MatchTopic(%q) = %q, want %q", tc.query, name, tc.want)
			}
			if content == "" {
				t.Error("expected non-empty content")
			}
		})
	}
}

func TestMatchTopicUnknown(t *testing.T) {
	for _, q := range []string{"nonexistent", "constructor", "__proto__", ""} {
		if _, _, err := MatchTopic(q); err == nil {
			t.Errorf("expected error for %q", q)
		}
	}
}

func TestMatchTopicAmbiguous(t *testing.T) {
	TopicList = append(TopicList, "configure")
	Topics["configure"] = "x"
	defer func() {
		TopicList = TopicList[:len(TopicList)-1]
		delete(Topics, "configure")
	}()
	_, _, err := MatchTopic("conf")
	if err == nil || !strings.Contains(err.Error(), "ambiguous") {
		t.Errorf("expected ambiguity error, got %v", err)
	}
}

func TestMatchTopicAllExact(t *testing.T) {
	for _, topic := range TopicList {
		name, content, err := MatchTopic(topic)
		if err != nil {
			t.Errorf("MatchTopic(%q) error: %v", topic, err)
			continue
		}
		if name != topic {
			t.Errorf("MatchTopic(%q) returned name %q", topic, name)
		}
		if content == "" {
			t.Errorf("MatchTopic(%q) returned empty content", topic)
		}
	}
}

func TestBuiltinIndex(t *testing.T) {
	idx := BuiltinIndex()
	for _, want := range []string{"print", "read", "forward only", "Total: 2 builtins"} {
		if !strings.Contains(idx, want) {
			t.Errorf("BuiltinIndex missing %q:\n%s", want, idx)
		}
	}
}

func TestCodeIndex(t *testing.T) {
	idx := CodeIndex()
	for _, want := range []string{"E_UNLET_MISMATCH", "UnletMismatch", "E_NO_ENTRY"} {
		if !strings.Contains(idx, want) {
			t.Errorf("CodeIndex missing %q", want)
		}
	}
}

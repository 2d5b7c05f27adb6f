package serializer

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

type testDoc struct {
	Name  string `json:"name" yaml:"name"`
	Value int    `json:"value" yaml:"value"`
}

type testTable struct{}

func (testTable) Headers() []string { return []string{"SERVICE", "HEALTH"} }
func (testTable) Rows() [][]string {
	return [][]string{{"Studio", "Running"}, {"STT", "Pending"}}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"yaml", FormatYAML, false},
		{"JSON", FormatJSON, false},
		{" table ", FormatTable, false},
		{"", FormatTable, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseFormat(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseFormat(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestWriterSerializeJSON(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(FormatJSON, &buf)

	if err := w.Serialize(context.Background(), testDoc{Name: "demo", Value: 3}); err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	var got testDoc
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid json output: %v", err)
	}
	if got.Name != "demo" || got.Value != 3 {
		t.Errorf("unexpected round trip: %+v", got)
	}
}

func TestWriterSerializeYAML(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(FormatYAML, &buf)

	if err := w.Serialize(context.Background(), testDoc{Name: "demo", Value: 3}); err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	var got testDoc
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid yaml output: %v", err)
	}
	if got.Name != "demo" {
		t.Errorf("unexpected round trip: %+v", got)
	}
}

func TestWriterSerializeTable(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(FormatTable, &buf)

	if err := w.Serialize(context.Background(), testTable{}); err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "SERVICE") || !strings.Contains(out, "HEALTH") {
		t.Errorf("missing header: %q", out)
	}
	if !strings.Contains(out, "Running") {
		t.Errorf("missing row: %q", out)
	}
}

func TestWriterTableFallsBackToYAML(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(FormatTable, &buf)

	if err := w.Serialize(context.Background(), testDoc{Name: "demo"}); err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if !strings.Contains(buf.String(), "name: demo") {
		t.Errorf("expected yaml fallback, got %q", buf.String())
	}
}

func TestWriterCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := NewWriter(FormatJSON, &bytes.Buffer{})
	if err := w.Serialize(ctx, testDoc{}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

package trace

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func build(t *testing.T, log string) *Trace {
	t.Helper()
	tr, err := NewBuilder(nil, discard()).BuildReader(strings.NewReader(log))
	if err != nil {
		t.Fatalf("BuildReader failed: %v", err)
	}
	return tr
}

func stepEdges(tr *Trace) []string {
	var out []string
	for _, e := range tr.Edges() {
		from, _ := tr.Node(e.From)
		to, _ := tr.Node(e.To)
		out = append(out, from.Step+" -> "+to.Step)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		line    string
		ok      bool
		level   string
		message string
	}{
		{"2023-05-01 14:03:22,123 - INFO - Save directory: /x", true, "INFO", "Save directory: /x"},
		{"2023-05-01 14:03:22,123 - WARNING - Runtime of the fetch function is 1.2 seconds\r", true, "WARNING", "Runtime of the fetch function is 1.2 seconds"},
		{"2023-05-01 14:03:22,5 - DEBUG - short fraction", true, "DEBUG", "short fraction"},
		{"2023-05-01 14:03:22 - INFO - no millis", false, "", ""},
		{"Traceback (most recent call last):", false, "", ""},
		{"", false, "", ""},
	}

	for _, tt := range tests {
		ev, ok := ParseLine(tt.line)
		if ok != tt.ok {
			t.Errorf("ParseLine(%q) ok = %v, want %v", tt.line, ok, tt.ok)
			continue
		}
		if !ok {
			continue
		}
		if ev.Level != tt.level || ev.Message != tt.message {
			t.Errorf("ParseLine(%q) = (%q, %q)", tt.line, ev.Level, ev.Message)
		}
	}

	ev, _ := ParseLine("2023-05-01 14:03:22,123 - INFO - x")
	if ev.Timestamp.Year() != 2023 || ev.Timestamp.Second() != 22 || ev.Timestamp.Nanosecond() != 123_000_000 {
		t.Errorf("timestamp = %v", ev.Timestamp)
	}
}

func TestParse_DropsNonMatchingLines(t *testing.T) {
	log := strings.Join([]string{
		"2023-05-01 14:03:22,123 - INFO - Fetching SEC filings ticker=AAPL",
		"  File \"utils.py\", line 12",
		"2023-05-01 14:03:22,124 - INFO - Save directory path=/x",
	}, "\n")

	events, dropped, err := Parse(strings.NewReader(log))
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 || dropped != 1 {
		t.Errorf("events = %d, dropped = %d; want 2 and 1", len(events), dropped)
	}
}

func TestBuild_ThreeSteps(t *testing.T) {
	tr := build(t, `2023-05-01 14:03:22,100 - INFO - Fetching SEC filings for ticker: AAPL
2023-05-01 14:03:22,200 - INFO - Save directory: /x
2023-05-01 14:03:22,300 - INFO - Checking existing files for 10-K filings: []
`)

	if n := len(tr.Nodes()); n != 3 {
		t.Errorf("nodes = %d, want 3", n)
	}
	want := []string{"Fetch SEC filings -> Save directory", "Save directory -> Check existing files"}
	if got := stepEdges(tr); !equal(got, want) {
		t.Errorf("edges = %v, want %v", got, want)
	}
}

func TestBuild_FinishReplacesTop(t *testing.T) {
	tr := build(t, `2023-05-01 10:00:00,000 - INFO - Fetching SEC filings ticker=AAPL
2023-05-01 10:00:00,001 - INFO - Processing filing path path=/p
2023-05-01 10:00:00,002 - INFO - Started processing folder folder=/p
2023-05-01 10:00:00,003 - INFO - Finished processing folder folder=/p
2023-05-01 10:00:00,004 - INFO - Moving files to parent folder path=/p
`)

	want := []string{
		"Fetch SEC filings -> Process Filing Path",
		"Process Filing Path -> Start Processing Folder",
		"Process Filing Path -> Finish Processing Folder",
		"Finish Processing Folder -> Move Files to Parent Folder",
	}
	if got := stepEdges(tr); !equal(got, want) {
		t.Errorf("edges = %v, want %v", got, want)
	}
}

func TestBuild_FinishAtRootKeepsRoot(t *testing.T) {
	tr := build(t, `2023-05-01 10:00:00,000 - INFO - Fetching SEC filings ticker=AAPL
2023-05-01 10:00:00,001 - INFO - Finished processing folder folder=/p
2023-05-01 10:00:00,002 - INFO - Save directory path=/x
`)

	if n := len(tr.Nodes()); n != 3 {
		t.Errorf("nodes = %d, want 3", n)
	}
	want := []string{"Fetch SEC filings -> Save directory"}
	if got := stepEdges(tr); !equal(got, want) {
		t.Errorf("edges = %v, want %v", got, want)
	}
}

func TestBuild_RootStartsNewRun(t *testing.T) {
	tr := build(t, `2023-05-01 10:00:00,000 - INFO - Fetching SEC filings ticker=AAPL
2023-05-01 10:00:00,001 - INFO - Save directory path=/x
2023-05-01 10:00:00,002 - INFO - Checking existing files paths=[]
2023-05-01 11:00:00,000 - INFO - Fetching SEC filings ticker=MSFT
2023-05-01 11:00:00,001 - INFO - Save directory path=/x
`)

	if len(tr.Runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(tr.Runs))
	}
	if tr.Runs[0].ID == tr.Runs[1].ID {
		t.Error("run IDs must differ")
	}

	second := tr.Runs[1]
	if len(second.Nodes) != 2 || len(second.Edges) != 1 {
		t.Fatalf("second run: %d nodes, %d edges", len(second.Nodes), len(second.Edges))
	}
	root, ok := second.Root()
	if !ok || root.Step != "Fetch SEC filings" || root.ID != (NodeID{Run: 1, Index: 0}) {
		t.Errorf("second run root = %+v", root)
	}
	if e := second.Edges[0]; e.From != root.ID || e.To != (NodeID{Run: 1, Index: 1}) {
		t.Errorf("second run edge = %+v", e)
	}

	// Same step name in two runs yields two distinct nodes.
	saves := 0
	for _, n := range tr.Nodes() {
		if n.Step == "Save directory" {
			saves++
		}
	}
	if saves != 2 {
		t.Errorf("Save directory nodes = %d, want 2", saves)
	}
}

func TestBuild_RepeatedStepChains(t *testing.T) {
	tr := build(t, `2023-05-01 10:00:00,000 - INFO - Fetching SEC filings ticker=AAPL
2023-05-01 10:00:00,001 - INFO - Processing final HTML file path=/a.html
2023-05-01 10:00:00,002 - INFO - Processing final HTML file path=/b.html
`)

	edges := tr.Edges()
	if len(edges) != 2 {
		t.Fatalf("edges = %d, want 2", len(edges))
	}
	for _, e := range edges {
		if e.From == e.To {
			t.Errorf("self loop %v", e)
		}
	}
	if edges[1].From != (NodeID{Run: 0, Index: 1}) || edges[1].To != (NodeID{Run: 0, Index: 2}) {
		t.Errorf("second edge = %+v", edges[1])
	}
}

func TestBuild_StepsBeforeRootAreDetached(t *testing.T) {
	tr := build(t, `2023-05-01 10:00:00,000 - INFO - Save directory path=/x
2023-05-01 10:00:00,001 - INFO - Checking existing files paths=[]
2023-05-01 10:00:00,002 - INFO - Fetching SEC filings ticker=AAPL
2023-05-01 10:00:00,003 - INFO - Save directory path=/x
`)

	if len(tr.Runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(tr.Runs))
	}
	detached := tr.Runs[0]
	if !detached.Detached || len(detached.Nodes) != 2 || len(detached.Edges) != 0 {
		t.Errorf("detached run = %+v", detached)
	}
	if _, ok := detached.Root(); ok {
		t.Error("detached run has no root")
	}
	want := []string{"Fetch SEC filings -> Save directory"}
	if got := stepEdges(tr); !equal(got, want) {
		t.Errorf("edges = %v, want %v", got, want)
	}
}

func TestBuild_IgnoresUnclassifiedMessages(t *testing.T) {
	tr := build(t, `2023-05-01 10:00:00,000 - INFO - Fetching SEC filings ticker=AAPL
2023-05-01 10:00:00,001 - DEBUG - renaming artifact source=/a
2023-05-01 10:00:00,002 - INFO - Save directory path=/x
`)
	if n := len(tr.Nodes()); n != 2 {
		t.Errorf("nodes = %d, want 2", n)
	}
}

func TestClassify_Precedence(t *testing.T) {
	// Both triggers occur; the earlier table entry wins.
	r, ok := Classify(DefaultRules, "Save directory while Checking existing files")
	if !ok || r.Step != "Save directory" {
		t.Errorf("Classify = %+v, %v", r, ok)
	}

	r, ok = Classify(DefaultRules, "Fetching SEC filings; Finished processing folder")
	if !ok || r.Kind != Root {
		t.Errorf("Classify = %+v, %v", r, ok)
	}

	if _, ok := Classify(DefaultRules, "unrelated message"); ok {
		t.Error("expected no match")
	}

	custom := []Rule{
		{Trigger: "folder", Step: "Any Folder"},
		{Trigger: "Finished processing folder", Step: "Finish", Kind: Finish},
	}
	if r, _ := Classify(custom, "Finished processing folder /p"); r.Step != "Any Folder" {
		t.Errorf("custom table order not respected: %+v", r)
	}
}

func TestDefaultRules_Table(t *testing.T) {
	var roots, finishes int
	seen := map[string]bool{}
	for _, r := range DefaultRules {
		if seen[r.Trigger] {
			t.Errorf("duplicate trigger %q", r.Trigger)
		}
		seen[r.Trigger] = true
		switch r.Kind {
		case Root:
			roots++
		case Finish:
			finishes++
		}
	}
	if roots != 1 || finishes != 1 {
		t.Errorf("roots = %d, finishes = %d; want 1 each", roots, finishes)
	}
	if DefaultRules[0].Kind != Root {
		t.Error("root rule should be first")
	}
}

func TestBuildFile_Missing(t *testing.T) {
	tr, err := NewBuilder(nil, discard()).BuildFile(filepath.Join(t.TempDir(), "missing.log"))
	if err != nil {
		t.Fatalf("BuildFile failed: %v", err)
	}
	if len(tr.Runs) != 0 {
		t.Errorf("runs = %d, want 0", len(tr.Runs))
	}
}

func TestBuildFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logfile.log")
	log := "2023-05-01 10:00:00,000 - INFO - Fetching SEC filings ticker=AAPL\n2023-05-01 10:00:00,001 - INFO - Save directory path=/x\n"
	if err := os.WriteFile(path, []byte(log), 0o644); err != nil {
		t.Fatal(err)
	}

	tr, err := NewBuilder(nil, discard()).BuildFile(path)
	if err != nil {
		t.Fatalf("BuildFile failed: %v", err)
	}
	if len(tr.Edges()) != 1 {
		t.Errorf("edges = %d, want 1", len(tr.Edges()))
	}
}

const sample = `2023-05-01 14:03:22,100 - INFO - Fetching SEC filings for ticker: AAPL
2023-05-01 14:03:22,200 - INFO - Save directory: /x
2023-05-01 14:03:22,300 - INFO - Checking existing files for 10-K filings: []
`

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, build(t, sample), FormatText); err != nil {
		t.Fatal(err)
	}
	want := "Fetch SEC filings -> Save directory\nSave directory -> Check existing files\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestWriteDOT(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, build(t, sample), FormatDOT); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"digraph trace {",
		`"r0.n0" [label="Fetch SEC filings"];`,
		`"r0.n0" -> "r0.n1";`,
		`"r0.n1" -> "r0.n2";`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("DOT output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteJSONAndYAML(t *testing.T) {
	tr := build(t, sample)

	var jbuf bytes.Buffer
	if err := Write(&jbuf, tr, FormatJSON); err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Runs []struct {
			ID    string `json:"id"`
			Edges []struct {
				From string `json:"from"`
				To   string `json:"to"`
			} `json:"edges"`
		} `json:"runs"`
	}
	if err := json.Unmarshal(jbuf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(decoded.Runs) != 1 || len(decoded.Runs[0].Edges) != 2 {
		t.Fatalf("decoded = %+v", decoded)
	}
	if e := decoded.Runs[0].Edges[0]; e.From != "r0.n0" || e.To != "r0.n1" {
		t.Errorf("first edge = %+v", e)
	}
	if decoded.Runs[0].ID != tr.Runs[0].ID {
		t.Errorf("run id = %q, want %q", decoded.Runs[0].ID, tr.Runs[0].ID)
	}

	var ybuf bytes.Buffer
	if err := Write(&ybuf, tr, FormatYAML); err != nil {
		t.Fatal(err)
	}
	var back Trace
	if err := yaml.Unmarshal(ybuf.Bytes(), &back); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if len(back.Runs) != 1 || len(back.Runs[0].Nodes) != 3 {
		t.Fatalf("yaml round trip lost nodes: %+v", back)
	}
	if back.Runs[0].Edges[1].To != (NodeID{Run: 0, Index: 2}) {
		t.Errorf("yaml edge = %+v", back.Runs[0].Edges[1])
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	if err := Write(io.Discard, &Trace{}, "svg"); err == nil {
		t.Error("expected error for unknown format")
	}
}

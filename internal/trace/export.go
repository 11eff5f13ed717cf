package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Export formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatDOT  = "dot"
)

// Formats lists the supported export formats.
var Formats = []string{FormatText, FormatJSON, FormatYAML, FormatDOT}

// ContentType returns the MIME type of an export format.
func ContentType(format string) string {
	switch format {
	case FormatJSON:
		return "application/json"
	case FormatYAML:
		return "application/yaml"
	case FormatDOT:
		return "text/vnd.graphviz"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Write encodes t in the given format.
func Write(w io.Writer, t *Trace, format string) error {
	switch format {
	case FormatText, "":
		return WriteText(w, t)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(t)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(t); err != nil {
			return err
		}
		return enc.Close()
	case FormatDOT:
		return WriteDOT(w, t)
	default:
		return fmt.Errorf("unknown trace format %q", format)
	}
}

// WriteText writes one "Parent -> Child" line per edge.
func WriteText(w io.Writer, t *Trace) error {
	for _, e := range t.Edges() {
		from, _ := t.Node(e.From)
		to, _ := t.Node(e.To)
		if _, err := fmt.Fprintf(w, "%s -> %s\n", from.Step, to.Step); err != nil {
			return err
		}
	}
	return nil
}

// WriteDOT writes t as a Graphviz digraph with one cluster per run.
func WriteDOT(w io.Writer, t *Trace) error {
	bw := &errWriter{w: w}

	bw.printf("digraph trace {\n")
	bw.printf("  rankdir=TB;\n")
	bw.printf("  node [shape=box];\n")
	for i, r := range t.Runs {
		bw.printf("  subgraph cluster_%d {\n", i)
		bw.printf("    label=%s;\n", strconv.Quote(r.ID))
		for _, n := range r.Nodes {
			bw.printf("    %s [label=%s];\n", strconv.Quote(n.ID.String()), strconv.Quote(n.Step))
		}
		bw.printf("  }\n")
	}
	for _, e := range t.Edges() {
		bw.printf("  %s -> %s;\n", strconv.Quote(e.From.String()), strconv.Quote(e.To.String()))
	}
	bw.printf("}\n")
	return bw.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

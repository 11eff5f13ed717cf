// Package trace reconstructs a step tree from pipeline log lines.
//
// Nodes live in an arena: every run (the events between two root triggers)
// owns its nodes, and a node is addressed by its run and occurrence index, so
// repeated steps never collide across or within runs.
package trace

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/mfenderov/filingflow/internal/failure"
	"github.com/mfenderov/filingflow/pkg/models"
)

// NodeID addresses a node by run index and occurrence index within the run.
type NodeID struct {
	Run   int
	Index int
}

func (id NodeID) String() string {
	return fmt.Sprintf("r%d.n%d", id.Run, id.Index)
}

func (id NodeID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *NodeID) UnmarshalText(b []byte) error {
	_, err := fmt.Sscanf(string(b), "r%d.n%d", &id.Run, &id.Index)
	return err
}

// Node is one occurrence of a step.
type Node struct {
	ID        NodeID    `json:"id" yaml:"id"`
	Step      string    `json:"step" yaml:"step"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Level     string    `json:"level" yaml:"level"`
	Message   string    `json:"message" yaml:"message"`
}

// Edge is a parent to child step transition.
type Edge struct {
	From NodeID `json:"from" yaml:"from"`
	To   NodeID `json:"to" yaml:"to"`
}

// Run holds the nodes of one pipeline invocation. A detached run collects
// steps logged before any root trigger; it never has edges.
type Run struct {
	ID       string `json:"id" yaml:"id"`
	Detached bool   `json:"detached,omitempty" yaml:"detached,omitempty"`
	Nodes    []Node `json:"nodes" yaml:"nodes"`
	Edges    []Edge `json:"edges" yaml:"edges"`

	index int
}

func (r *Run) add(step string, ev models.ProcessEvent) NodeID {
	id := NodeID{Run: r.index, Index: len(r.Nodes)}
	r.Nodes = append(r.Nodes, Node{
		ID:        id,
		Step:      step,
		Timestamp: ev.Timestamp,
		Level:     ev.Level,
		Message:   ev.Message,
	})
	return id
}

func (r *Run) link(from, to NodeID) {
	r.Edges = append(r.Edges, Edge{From: from, To: to})
}

// Root returns the run's root node.
func (r *Run) Root() (Node, bool) {
	if r.Detached || len(r.Nodes) == 0 {
		return Node{}, false
	}
	return r.Nodes[0], true
}

// Trace is the reconstructed step graph, one arborescence per run.
type Trace struct {
	Runs []*Run `json:"runs" yaml:"runs"`
}

// Node looks up a node by ID.
func (t *Trace) Node(id NodeID) (Node, bool) {
	if id.Run < 0 || id.Run >= len(t.Runs) {
		return Node{}, false
	}
	nodes := t.Runs[id.Run].Nodes
	if id.Index < 0 || id.Index >= len(nodes) {
		return Node{}, false
	}
	return nodes[id.Index], true
}

// Nodes returns all nodes in run order.
func (t *Trace) Nodes() []Node {
	var out []Node
	for _, r := range t.Runs {
		out = append(out, r.Nodes...)
	}
	return out
}

// Edges returns all edges in run order.
func (t *Trace) Edges() []Edge {
	var out []Edge
	for _, r := range t.Runs {
		out = append(out, r.Edges...)
	}
	return out
}

// Builder turns events into a Trace.
type Builder struct {
	rules  []Rule
	logger *slog.Logger
}

// NewBuilder creates a Builder. A nil rules slice selects DefaultRules.
func NewBuilder(rules []Rule, logger *slog.Logger) *Builder {
	if rules == nil {
		rules = DefaultRules
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{rules: rules, logger: logger}
}

// Build runs the stack machine over events.
func (b *Builder) Build(events []models.ProcessEvent) *Trace {
	t := &Trace{}
	entropy := ulid.Monotonic(rand.Reader, 0)

	newRun := func(ev models.ProcessEvent, detached bool) *Run {
		r := &Run{
			ID:       ulid.MustNew(ulid.Timestamp(ev.Timestamp), entropy).String(),
			Detached: detached,
			index:    len(t.Runs),
		}
		t.Runs = append(t.Runs, r)
		return r
	}

	var (
		run   *Run
		stack []NodeID
	)

	for _, ev := range events {
		rule, ok := Classify(b.rules, ev.Message)
		if !ok {
			continue
		}

		if rule.Kind == Root {
			run = newRun(ev, false)
			stack = []NodeID{run.add(rule.Step, ev)}
			continue
		}

		if run == nil {
			run = newRun(ev, true)
		}
		id := run.add(rule.Step, ev)

		switch rule.Kind {
		case Finish:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
				run.link(stack[len(stack)-1], id)
				stack = append(stack, id)
			}
		default:
			if len(stack) > 0 {
				run.link(stack[len(stack)-1], id)
				stack = append(stack, id)
			}
		}
	}
	return t
}

// BuildReader parses r and builds its trace.
func (b *Builder) BuildReader(r io.Reader) (*Trace, error) {
	events, dropped, err := Parse(r)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		b.logger.Debug("log lines outside trace grammar ignored", "kind", failure.LogLineMismatch, "count", dropped)
	}
	return b.Build(events), nil
}

// BuildFile parses the log file at path and builds its trace. A missing file
// yields an empty trace.
func (b *Builder) BuildFile(path string) (*Trace, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Trace{}, nil
	}
	if err != nil {
		return nil, failure.Filesystem("open log", path, err)
	}
	defer f.Close()

	t, err := b.BuildReader(f)
	if err != nil {
		return nil, failure.Filesystem("read log", path, err)
	}
	return t, nil
}

package trace

import "strings"

// RuleKind selects how a classified event moves the step stack.
type RuleKind int

const (
	// Ordinary links the step under the current top and pushes it.
	Ordinary RuleKind = iota
	// Root starts a new run and resets the stack to the step.
	Root
	// Finish replaces the current top with the step, never popping the root.
	Finish
)

func (k RuleKind) String() string {
	switch k {
	case Root:
		return "root"
	case Finish:
		return "finish"
	default:
		return "ordinary"
	}
}

// Rule maps a message substring to a named step.
type Rule struct {
	Trigger string
	Step    string
	Kind    RuleKind
}

// DefaultRules is evaluated in order; the first rule whose trigger occurs in
// a message classifies it.
var DefaultRules = []Rule{
	{Trigger: "Fetching SEC filings", Step: "Fetch SEC filings", Kind: Root},
	{Trigger: "Save directory", Step: "Save directory"},
	{Trigger: "Checking existing files", Step: "Check existing files"},
	{Trigger: "Downloader initialized successfully", Step: "Initialize Downloader"},
	{Trigger: "Number of filings downloaded", Step: "Download Filings"},
	{Trigger: "Filing paths found", Step: "Find Filing Paths"},
	{Trigger: "Processing filing path", Step: "Process Filing Path"},
	{Trigger: "Started processing folder", Step: "Start Processing Folder"},
	{Trigger: "Finished processing folder", Step: "Finish Processing Folder", Kind: Finish},
	{Trigger: "Moving files to parent folder", Step: "Move Files to Parent Folder"},
	{Trigger: "Processing final HTML file", Step: "Process Final HTML File"},
	{Trigger: "Runtime of the fetch", Step: "Log Runtime"},
}

// Classify returns the first rule in rules whose trigger is contained in
// message.
func Classify(rules []Rule, message string) (Rule, bool) {
	for _, r := range rules {
		if strings.Contains(message, r.Trigger) {
			return r, true
		}
	}
	return Rule{}, false
}

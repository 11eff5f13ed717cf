package trace

import (
	"bufio"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/mfenderov/filingflow/pkg/models"
)

var linePattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2},\d+) - (\w+) - (.*)$`)

// timestampLayout omits the milliseconds; time.Parse accepts a trailing
// ",fff" fraction after the seconds field.
const timestampLayout = "2006-01-02 15:04:05"

// ParseLine parses one "TIMESTAMP - LEVEL - MESSAGE" line.
func ParseLine(line string) (models.ProcessEvent, bool) {
	m := linePattern.FindStringSubmatch(strings.TrimRight(line, "\r"))
	if m == nil {
		return models.ProcessEvent{}, false
	}
	ts, err := time.ParseInLocation(timestampLayout, m[1], time.Local)
	if err != nil {
		return models.ProcessEvent{}, false
	}
	return models.ProcessEvent{Timestamp: ts, Level: m[2], Message: m[3]}, true
}

// Parse reads log lines from r and returns one event per matching line.
// Lines that do not fit the grammar are dropped and counted.
func Parse(r io.Reader) (events []models.ProcessEvent, dropped int, err error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		if ev, ok := ParseLine(sc.Text()); ok {
			events = append(events, ev)
		} else {
			dropped++
		}
	}
	return events, dropped, sc.Err()
}

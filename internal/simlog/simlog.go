package simlog

import (
	"fmt"
	"strings"
)

// Entry is one recorded event.
type Entry struct {
	Cycle    int     `json:"cycle"`
	Subject  string  `json:"subject"`  // agent or squad id, "--" for global events
	Category string  `json:"category"` // route, path, voyage, matrix, squad, intent, store, sim
	Key      string  `json:"key"`      // specific event name within the category
	Value    string  `json:"value"`    // human-readable detail
	NumVal   float64 `json:"num,omitempty"`
}

// String formats the entry as a fixed-width log line.
//
//	[C=042] a1       voyage    stuck            count=2
func (e Entry) String() string {
	return fmt.Sprintf("[C=%03d] %-8s %-9s %-16s %s",
		e.Cycle, e.Subject, e.Category, e.Key, e.Value)
}

// Sink receives a copy of every entry as it is recorded.
type Sink interface {
	Write(v any) error
}

// Log collects structured events for a run. It is unbounded and
// machine-readable. A nil *Log discards everything.
type Log struct {
	entries []Entry
	verbose bool
	sink    Sink
	sinkErr error
}

// New creates a Log. If verbose is true, per-cycle detail entries are also
// recorded.
func New(verbose bool) *Log {
	return &Log{verbose: verbose}
}

// SetSink attaches a sink. Pass nil to detach.
func (l *Log) SetSink(s Sink) {
	if l == nil {
		return
	}
	l.sink = s
}

// SinkErr returns the first error reported by the sink, if any. Once a sink
// fails it is detached so the run keeps going.
func (l *Log) SinkErr() error {
	if l == nil {
		return nil
	}
	return l.sinkErr
}

// Verbose reports whether detail entries are kept.
func (l *Log) Verbose() bool {
	return l != nil && l.verbose
}

// Add records a new entry.
func (l *Log) Add(cycle int, subject, category, key, value string, numVal float64) {
	if l == nil {
		return
	}
	e := Entry{
		Cycle:    cycle,
		Subject:  subject,
		Category: category,
		Key:      key,
		Value:    value,
		NumVal:   numVal,
	}
	l.entries = append(l.entries, e)
	if l.sink != nil {
		if err := l.sink.Write(e); err != nil {
			l.sinkErr = err
			l.sink = nil
		}
	}
}

// Addf is Add with a formatted value and no numeric payload.
func (l *Log) Addf(cycle int, subject, category, key, format string, args ...any) {
	if l == nil {
		return
	}
	l.Add(cycle, subject, category, key, fmt.Sprintf(format, args...), 0)
}

// AddVerbose records an entry only when verbose mode is on.
func (l *Log) AddVerbose(cycle int, subject, category, key, value string, numVal float64) {
	if !l.Verbose() {
		return
	}
	l.Add(cycle, subject, category, key, value, numVal)
}

// Entries returns all recorded entries.
func (l *Log) Entries() []Entry {
	if l == nil {
		return nil
	}
	return l.entries
}

// Len returns the number of recorded entries.
func (l *Log) Len() int {
	if l == nil {
		return 0
	}
	return len(l.entries)
}

// Filter returns entries matching the given category and/or key.
// Pass empty string to match any value for that field.
func (l *Log) Filter(category, key string) []Entry {
	var out []Entry
	for _, e := range l.Entries() {
		if category != "" && e.Category != category {
			continue
		}
		if key != "" && e.Key != key {
			continue
		}
		out = append(out, e)
	}
	return out
}

// FilterSubject returns entries for one agent or squad.
func (l *Log) FilterSubject(subject string) []Entry {
	var out []Entry
	for _, e := range l.Entries() {
		if e.Subject == subject {
			out = append(out, e)
		}
	}
	return out
}

// FilterCycleRange returns entries within [from, to] inclusive.
func (l *Log) FilterCycleRange(from, to int) []Entry {
	var out []Entry
	for _, e := range l.Entries() {
		if e.Cycle >= from && e.Cycle <= to {
			out = append(out, e)
		}
	}
	return out
}

// CountCategory returns how many entries match the given category and key.
func (l *Log) CountCategory(category, key string) int {
	return len(l.Filter(category, key))
}

// LastOf returns the most recent entry matching category+key, or false if none.
func (l *Log) LastOf(category, key string) (Entry, bool) {
	entries := l.Filter(category, key)
	if len(entries) == 0 {
		return Entry{}, false
	}
	return entries[len(entries)-1], true
}

// HasEntry returns true if at least one entry matches category, key, and value substring.
func (l *Log) HasEntry(category, key, valueSubstr string) bool {
	for _, e := range l.Entries() {
		if category != "" && e.Category != category {
			continue
		}
		if key != "" && e.Key != key {
			continue
		}
		if valueSubstr != "" && !strings.Contains(e.Value, valueSubstr) {
			continue
		}
		return true
	}
	return false
}

// Format returns the full log as a single string for t.Log output.
func (l *Log) Format() string {
	return format(l.Entries())
}

// FormatRange returns a log string filtered to a cycle range.
func (l *Log) FormatRange(from, to int) string {
	return format(l.FilterCycleRange(from, to))
}

// CategoryCounts tallies entries per category/key pair ("voyage/stuck").
func (l *Log) CategoryCounts() map[string]int {
	out := make(map[string]int)
	for _, e := range l.Entries() {
		out[e.Category+"/"+e.Key]++
	}
	return out
}

func format(entries []Entry) string {
	var sb strings.Builder
	for _, e := range entries {
		sb.WriteString(e.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Package convert rewrites Prometheus text exposition into InfluxDB line protocol.
package convert

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// LineError describes one exposition line that could not be converted.
type LineError struct {
	Line   int // 1-based
	Text   string
	Reason string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("convert: line %d %q: %s", e.Line, e.Text, e.Reason)
}

type sample struct {
	name      string
	labels    string
	value     string
	timestamp string
}

// Convert translates every sample line of an exposition block into one
// line-protocol record. Comment and blank lines are dropped. Lines without a
// recoverable "name value timestamp" shape are skipped and reported through
// the returned error; the records that did convert are still returned.
func Convert(exposition string) (string, error) {
	if exposition == "" {
		return "", nil
	}

	var (
		out  []string
		errs []error
	)
	for i, line := range strings.Split(exposition, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s, reason := parseLine(line)
		if reason != "" {
			errs = append(errs, &LineError{Line: i + 1, Text: line, Reason: reason})
			continue
		}
		out = append(out, s.lineProtocol())
	}
	return strings.Join(out, "\n"), errors.Join(errs...)
}

func parseLine(line string) (sample, string) {
	tsSep := strings.LastIndex(line, " ")
	if tsSep < 0 {
		return sample{}, "no value"
	}

	var s sample
	if start := strings.Index(line, "{"); start >= 0 {
		end := strings.LastIndex(line, "}")
		if end < start {
			return sample{}, "unterminated label block"
		}
		if tsSep < end {
			return sample{}, "no timestamp"
		}
		s.name = line[:start]
		labels := line[start+1 : end]
		labels = strings.ReplaceAll(labels, " ", `\ `)
		s.labels = strings.ReplaceAll(labels, `"`, "")
		s.value = strings.TrimSpace(line[end+1 : tsSep])
		if s.value == "" {
			return sample{}, "no timestamp"
		}
	} else {
		start := strings.Index(line, " ")
		if start == tsSep {
			return sample{}, "no timestamp"
		}
		s.name = line[:start]
		s.value = strings.TrimSpace(line[start+1 : tsSep])
	}
	s.timestamp = line[tsSep+1:]

	switch {
	case s.name == "":
		return sample{}, "no metric name"
	case s.value == "":
		return sample{}, "no value"
	}
	if _, err := strconv.ParseInt(s.timestamp, 10, 64); err != nil {
		return sample{}, "timestamp is not an integer"
	}
	return s, ""
}

// lineProtocol rescales the timestamp by 10^3 (ms in, us out).
func (s sample) lineProtocol() string {
	var b strings.Builder
	b.WriteString(s.name)
	b.WriteString(",__name__=")
	b.WriteString(s.name)
	if s.labels != "" {
		b.WriteByte(',')
		b.WriteString(s.labels)
	}
	b.WriteString(" value=")
	b.WriteString(s.value)
	b.WriteByte(' ')
	b.WriteString(s.timestamp)
	b.WriteString("000")
	return b.String()
}

package report

import (
	"fmt"
	"sort"
	"strings"

	"telnetload/internal/session"
)

// Summary aggregates a run.
type Summary struct {
	Total      int
	Succeeded  int
	Failed     int
	Iterations int
	ByOp       map[string]int // failures keyed by failing operation
}

// Summarize counts outcomes in results.
func Summarize(results []session.Result) Summary {
	s := Summary{Total: len(results), ByOp: make(map[string]int)}
	for _, r := range results {
		s.Iterations += r.Iterations
		if r.OK() {
			s.Succeeded++
			continue
		}
		s.Failed++
		op := r.Op()
		if op == "" {
			op = "other"
		}
		s.ByOp[op]++
	}
	return s
}

func (s Summary) String() string {
	line := fmt.Sprintf("%d clients: %d succeeded, %d failed, %d round trips",
		s.Total, s.Succeeded, s.Failed, s.Iterations)
	if len(s.ByOp) == 0 {
		return line
	}

	ops := make([]string, 0, len(s.ByOp))
	for op := range s.ByOp {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = fmt.Sprintf("%s=%d", op, s.ByOp[op])
	}
	return line + " (" + strings.Join(parts, " ") + ")"
}

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Period is the raw "timer" value of a task: fixed seconds, a [min, max)
// range of seconds, or a schedule string. Exactly one form is set.
type Period struct {
	Seconds int
	Range   []int
	Spec    string
}

func (p Period) IsZero() bool {
	return p.Seconds == 0 && len(p.Range) == 0 && strings.TrimSpace(p.Spec) == ""
}

func (p Period) String() string {
	switch {
	case len(p.Range) == 2:
		return fmt.Sprintf("[%d,%d)s", p.Range[0], p.Range[1])
	case strings.TrimSpace(p.Spec) != "":
		return strings.TrimSpace(p.Spec)
	default:
		return fmt.Sprintf("%ds", p.Seconds)
	}
}

func (p *Period) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*p = Period{}
		return nil
	}
	switch b[0] {
	case '[':
		var r []float64
		if err := json.Unmarshal(b, &r); err != nil {
			return fmt.Errorf("timer range: %w", err)
		}
		if len(r) != 2 {
			return fmt.Errorf("timer range must have exactly 2 elements, got %d", len(r))
		}
		*p = Period{Range: []int{int(r[0]), int(r[1])}}
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = Period{Spec: s}
	default:
		var f float64
		if err := json.Unmarshal(b, &f); err != nil {
			return fmt.Errorf("timer: expected seconds, [min,max] or schedule string: %w", err)
		}
		*p = Period{Seconds: int(f)}
	}
	return nil
}

func (p Period) MarshalJSON() ([]byte, error) {
	switch {
	case len(p.Range) > 0:
		return json.Marshal(p.Range)
	case strings.TrimSpace(p.Spec) != "":
		return json.Marshal(p.Spec)
	default:
		return json.Marshal(p.Seconds)
	}
}

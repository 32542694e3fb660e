// Package secret holds sensitive strings that must never appear in logs or
// serialized output.
package secret

// Text wraps a sensitive string. String and MarshalJSON redact it; the raw
// value is only reachable through Value, and Wipe zeroes the backing bytes.
type Text struct {
	b []byte
}

func New(v string) *Text {
	return &Text{b: []byte(v)}
}

func (t *Text) Value() string {
	if t == nil {
		return ""
	}
	return string(t.b)
}

func (t *Text) Empty() bool {
	return t == nil || len(t.b) == 0
}

// Wipe zeroes and drops the backing bytes. Call it as soon as the value has
// been handed to its consumer.
func (t *Text) Wipe() {
	if t == nil {
		return
	}
	for i := range t.b {
		t.b[i] = 0
	}
	t.b = nil
}

func (t *Text) String() string {
	if t.Empty() {
		return ""
	}
	return "********"
}

func (t *Text) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

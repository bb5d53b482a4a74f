// Package entry implements the keypad buffer used to type session parameters.
//
// Each field keeps a raw digit string (what is being typed) and a committed
// value (what a session would use). Only CommitAndCycle and Adjust change a
// committed value, and both clamp it into range first.
package entry

import (
	"fmt"
	"strconv"

	"github.com/sonicwave/pulse/pkg/constraints"
	"github.com/sonicwave/pulse/pkg/domain"
)

// DefaultMaxDigits bounds the raw string of each field.
const DefaultMaxDigits = 3

// Buffer holds the per-field raw strings, the committed values and the
// active field. It is not safe for concurrent use; the session orchestrator
// owns it from a single goroutine.
type Buffer struct {
	active    domain.FieldType
	raw       [3]string
	committed domain.Params
	defaults  domain.Params
	maxDigits int
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithMaxDigits overrides the raw string length limit.
func WithMaxDigits(n int) Option {
	return func(b *Buffer) {
		if n > 0 {
			b.maxDigits = n
		}
	}
}

// WithDefaults sets the committed values restored by ClearAll and used
// initially. The zero Params means every field starts unset.
func WithDefaults(p domain.Params) Option {
	return func(b *Buffer) {
		b.defaults = p
	}
}

// New creates a Buffer with Frequency active.
func New(opts ...Option) *Buffer {
	b := &Buffer{
		active:    domain.FieldFrequency,
		maxDigits: DefaultMaxDigits,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.committed = b.defaults
	return b
}

// SelectField switches the active field. Buffered and committed values are
// left untouched.
func (b *Buffer) SelectField(f domain.FieldType) {
	if !f.Valid() {
		return
	}
	b.active = f
}

// AppendDigit appends d to the active raw string. Anything other than a
// single ASCII digit, or a digit past the length limit, is ignored.
func (b *Buffer) AppendDigit(d string) bool {
	if len(d) != 1 || d[0] < '0' || d[0] > '9' {
		return false
	}
	if len(b.raw[b.active]) >= b.maxDigits {
		return false
	}
	b.raw[b.active] += d
	return true
}

// DeleteDigit removes the last digit of the active raw string.
func (b *Buffer) DeleteDigit() bool {
	r := b.raw[b.active]
	if r == "" {
		return false
	}
	b.raw[b.active] = r[:len(r)-1]
	return true
}

// ClearCurrent empties the active raw string only.
func (b *Buffer) ClearCurrent() {
	b.raw[b.active] = ""
}

// ClearAll empties every raw string, restores the default committed values
// and makes Frequency active again.
func (b *Buffer) ClearAll() {
	b.raw = [3]string{}
	b.committed = b.defaults
	b.active = domain.FieldFrequency
}

// CommitAndCycle commits the active field and advances focus. An empty raw
// string keeps the previous committed value. It returns the field that was
// committed and whether its committed value changed.
func (b *Buffer) CommitAndCycle() (domain.FieldType, bool) {
	f := b.active
	changed := b.commit(f)
	b.active = f.Next()
	return f, changed
}

// Adjust makes f active, folds its pending raw string into the committed
// value, adds delta and clamps. It reports whether the committed value changed.
func (b *Buffer) Adjust(f domain.FieldType, delta int) bool {
	if !f.Valid() {
		return false
	}
	b.active = f
	before := b.committed.Get(f)
	b.commit(f)
	next := constraints.Clamp(f, b.committed.Get(f)+delta)
	b.committed = b.committed.With(f, next)
	return next != before
}

func (b *Buffer) commit(f domain.FieldType) bool {
	r := b.raw[f]
	if r == "" {
		return false
	}
	b.raw[f] = ""
	// Raw strings only ever hold digits, so Atoi fails on overflow alone.
	v, err := strconv.Atoi(r)
	if err != nil {
		_, hi := constraints.Bounds(f)
		v = hi
	}
	v = constraints.Clamp(f, v)
	before := b.committed.Get(f)
	b.committed = b.committed.With(f, v)
	return v != before
}

// Active returns the active field.
func (b *Buffer) Active() domain.FieldType { return b.active }

// Raw returns the raw digit string of f.
func (b *Buffer) Raw(f domain.FieldType) string {
	if !f.Valid() {
		return ""
	}
	return b.raw[f]
}

// Committed returns the committed value of f (0 when unset).
func (b *Buffer) Committed(f domain.FieldType) int { return b.committed.Get(f) }

// Params returns every committed value.
func (b *Buffer) Params() domain.Params { return b.committed }

// SetCommitted stores an already-bounded value, used when restoring a
// persisted snapshot.
func (b *Buffer) SetCommitted(p domain.Params) { b.committed = p }

// Display formats f from its raw string if non-empty, else from its
// committed value.
func (b *Buffer) Display(f domain.FieldType) string {
	v := b.committed.Get(f)
	if r := b.Raw(f); r != "" {
		if n, err := strconv.Atoi(r); err == nil {
			v = n
		}
	}
	if f == domain.FieldDuration {
		return FormatClock(v * constraints.SecondsPerMinute)
	}
	return strconv.Itoa(v)
}

// View returns the presentation of f for a snapshot.
func (b *Buffer) View(f domain.FieldType) domain.FieldView {
	return domain.FieldView{
		Raw:       b.Raw(f),
		Display:   b.Display(f),
		Committed: b.Committed(f),
	}
}

// FormatClock renders seconds as MM:SS. Minutes are not capped at two digits.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/constraints.SecondsPerMinute, seconds%constraints.SecondsPerMinute)
}

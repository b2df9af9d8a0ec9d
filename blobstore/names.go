package blobstore

import (
	"iter"
	"slices"
)

// ObjectNames is a paginated cursor over a snapshot of object names taken
// when the cursor is built. Later changes to the container are not
// reflected; list again to observe them.
//
// An ObjectNames is meant for a single consumer and is not safe for
// concurrent use.
type ObjectNames struct {
	names []string
	pos   int
}

// NewObjectNames returns a cursor over a sorted copy of names.
func NewObjectNames(names []string) *ObjectNames {
	snapshot := slices.Clone(names)
	slices.Sort(snapshot)
	return &ObjectNames{names: snapshot}
}

// Read returns up to n names from the cursor and whether the cursor has
// reached the end of the snapshot. Reading an exhausted cursor returns an
// empty batch and true.
func (o *ObjectNames) Read(n int) ([]string, bool) {
	remaining := o.Remaining()
	if remaining == 0 {
		return []string{}, true
	}
	take := max(min(n, remaining), 0)
	batch := slices.Clone(o.names[o.pos : o.pos+take])
	o.pos += take
	return batch, o.IsEnd()
}

// Skip advances the cursor by up to n names. It returns the number actually
// skipped and whether the cursor has reached the end.
func (o *ObjectNames) Skip(n int) (int, bool) {
	skipped := max(min(n, o.Remaining()), 0)
	o.pos += skipped
	return skipped, o.IsEnd()
}

// Peek returns the next name without advancing.
func (o *ObjectNames) Peek() (string, bool) {
	if o.IsEnd() {
		return "", false
	}
	return o.names[o.pos], true
}

// Next returns the next name and advances by one.
func (o *ObjectNames) Next() (string, bool) {
	name, ok := o.Peek()
	if ok {
		o.pos++
	}
	return name, ok
}

// ReadAll returns every remaining name and moves the cursor to its end.
func (o *ObjectNames) ReadAll() []string {
	rest := slices.Clone(o.names[o.pos:])
	o.pos = len(o.names)
	return rest
}

// All returns an iterator over the remaining names. Iteration advances the
// cursor, so breaking out early leaves it positioned after the last name
// yielded.
func (o *ObjectNames) All() iter.Seq[string] {
	return func(yield func(string) bool) {
		for {
			name, ok := o.Next()
			if !ok || !yield(name) {
				return
			}
		}
	}
}

// Reset moves the cursor back to the start of the snapshot.
func (o *ObjectNames) Reset() {
	o.pos = 0
}

// Position returns the index of the next name.
func (o *ObjectNames) Position() int { return o.pos }

// Len returns the number of names in the snapshot.
func (o *ObjectNames) Len() int { return len(o.names) }

// Remaining returns the number of names not yet read.
func (o *ObjectNames) Remaining() int { return len(o.names) - o.pos }

// IsEnd reports whether the cursor is past the last name.
func (o *ObjectNames) IsEnd() bool { return o.pos >= len(o.names) }

// Package device gives every output and input channel of the machine a
// uniform shape. A backend implements one small interface per capability it
// supports (writing bytes, reading bytes, control requests); generic code
// such as formatted output is written once against those interfaces. Each
// backend is published behind a Handle which serializes access to it with a
// spinlock.
package device

import "tinykern/kernel/sync"

// Kind classifies a device.
type Kind uint8

const (
	// KindBlock identifies devices that transfer fixed-size blocks.
	KindBlock Kind = iota

	// KindChars identifies devices that transfer a stream of bytes.
	KindChars
)

// String implements fmt.Stringer for Kind.
func (k Kind) String() string {
	switch k {
	case KindBlock:
		return "block"
	case KindChars:
		return "chars"
	default:
		return "unknown"
	}
}

// ID uniquely identifies a device among the devices created by a Registry.
type ID uint32

// Info holds the identity of a device. It is immutable after construction.
type Info struct {
	ID   ID
	Name string
	Kind Kind
}

// Registry hands out device identifiers. IDs are assigned sequentially
// starting from zero; concurrent callers never observe duplicates.
type Registry struct {
	lock sync.Spinlock
	next ID
}

// NewInfo reserves the next device ID and returns the Info for a device of
// the given kind and name.
func (r *Registry) NewInfo(kind Kind, name string) Info {
	r.lock.Acquire()
	id := r.next
	r.next++
	r.lock.Release()

	return Info{ID: id, Name: name, Kind: kind}
}

// Count returns the number of IDs handed out so far.
func (r *Registry) Count() int {
	r.lock.Acquire()
	defer r.lock.Release()
	return int(r.next)
}

// Package heap implements the kernel's grow-and-reuse heap allocator.
//
// The allocator hands out memory from a single arena that starts right after
// the kernel image. Every carved region is flanked by two guard markers and
// the bookkeeping record of each allocation (a block) is itself carved from
// the arena. Blocks are kept in two singly linked lists: the used list, which
// tracks every allocation handed out so far, and the free list which is
// searched before carving new arena space. There is no deallocation API;
// memory is never returned to the arena.
package heap

import (
	"unsafe"

	"tinykern/kernel"
	"tinykern/kernel/kfmt"
	"tinykern/kernel/klog"
	"tinykern/kernel/mem"
	"tinykern/kernel/sync"
)

const (
	// Alignment is the alignment of every chunk returned by Alloc.
	Alignment = 8

	// GuardLow is written immediately before each carved region.
	GuardLow uint32 = 0x5EABFCD7

	// GuardHigh is written immediately after each carved region.
	GuardHigh uint32 = 0x52FCEDAB

	// guardSlot is the space reserved for each guard marker. The marker
	// occupies the slot bytes closest to the region so that off-by-one
	// writes in either direction clobber it.
	guardSlot = uintptr(8)

	guardSize = uintptr(4)

	// guardOverhead is the number of bytes each carved region spends on
	// guard slots.
	guardOverhead = 2 * guardSlot

	maxUintptr = ^uintptr(0)
)

var (
	// panicFn is used by tests to observe unrecoverable allocator errors.
	panicFn = kfmt.Panic

	log      = klog.New("heap")
	allocLog = klog.New("kalloc")

	// logLock serializes the package loggers which are shared by every
	// allocator.
	logLock sync.Spinlock

	errZeroCapacity   = &kernel.Error{Module: "heap", Message: "arena has zero capacity"}
	errOutOfMemory    = &kernel.Error{Module: "heap", Message: "arena exhausted"}
	errSizeOverflow   = &kernel.Error{Module: "heap", Message: "allocation size overflows the address space"}
	errGuardCorrupted = &kernel.Error{Module: "heap", Message: "guard marker overwritten"}
)

// BlockRef identifies a block record stored inside the arena. It holds the
// offset of the record from the arena base plus one; the zero value refers
// to no block.
type BlockRef uintptr

// block is the bookkeeping record of a single allocation.
type block struct {
	// size is the usable capacity of the chunk.
	size mem.Size

	// next links the block into either the used or the free list.
	next BlockRef

	// chunk is the address of the first usable payload byte.
	chunk uintptr
}

const blockSize = mem.Size(unsafe.Sizeof(block{}))

// BlockInfo describes a block for diagnostic purposes.
type BlockInfo struct {
	Ref   BlockRef
	Chunk uintptr
	Size  mem.Size
}

// Stats summarizes the allocator state.
type Stats struct {
	// Base is the aligned start of the arena.
	Base uintptr

	// Cursor is the address of the first byte that has not been carved.
	Cursor uintptr

	// Limit is the address right after the last arena byte.
	Limit uintptr

	// Used and Free report the number of blocks in each list.
	Used int
	Free int
}

// Allocator manages a heap arena. The zero value is an allocator with no
// capacity; call Init before use.
type Allocator struct {
	lock sync.Spinlock

	base   uintptr
	cursor uintptr
	limit  uintptr

	usedTop BlockRef
	freeTop BlockRef
}

// New returns an allocator whose arena spans [align(start), limit).
func New(start, limit uintptr) *Allocator {
	a := &Allocator{}
	a.Init(start, limit)
	return a
}

// Init seeds the arena cursor with the 8-byte aligned value of start and
// discards any previously tracked blocks. If start cannot be aligned without
// overflowing or the aligned start lies past limit, the arena is left with
// zero capacity and every subsequent Alloc call fails.
func (a *Allocator) Init(start, limit uintptr) {
	a.lock.Acquire()
	defer a.lock.Release()

	base, ok := mem.AlignUp(start, Alignment)
	if !ok || base > limit {
		base, limit = 0, 0
	}

	a.base, a.cursor, a.limit = base, base, limit
	a.usedTop, a.freeTop = 0, 0

	logLock.Acquire()
	log.Printf("heap pointer: 0x%x", base)
	logLock.Release()
}

// Alloc returns the address of a zero-filled chunk with at least size usable
// bytes. Chunk addresses are always 8-byte aligned.
//
// A block in the free list whose capacity is strictly greater than size is
// reused in preference to carving new arena space. If the arena cannot
// satisfy the request, Alloc reports the error via kfmt.Panic which halts the
// CPU; Alloc only returns 0 when that halt is mocked.
func (a *Allocator) Alloc(size mem.Size) uintptr {
	a.lock.Acquire()
	defer a.lock.Release()

	ref := a.takeFree(size)
	if ref == 0 {
		if ref = a.carveBlock(size); ref == 0 {
			return 0
		}
	}

	b := a.block(ref)
	b.next = a.usedTop
	a.usedTop = ref

	mem.Memset(b.chunk, 0, b.size)
	return b.chunk
}

// AllocOf allocates a zeroed value of type T from a. The type must not
// require an alignment larger than 8 bytes and must not hold Go pointers.
func AllocOf[T any](a *Allocator) *T {
	var zero T
	addr := a.Alloc(mem.Size(unsafe.Sizeof(zero)))
	if addr == 0 {
		return nil
	}
	return (*T)(unsafe.Pointer(addr))
}

// CheckGuards walks every block tracked by the allocator and verifies that
// the guard markers around its record and its chunk are still intact.
func (a *Allocator) CheckGuards() *kernel.Error {
	a.lock.Acquire()
	defer a.lock.Release()

	for _, top := range [2]BlockRef{a.usedTop, a.freeTop} {
		for ref := top; ref != 0; ref = a.block(ref).next {
			b := a.block(ref)
			if !guardsIntact(a.recordAddr(ref), alignSize(blockSize)) || !guardsIntact(b.chunk, b.size) {
				return errGuardCorrupted
			}
		}
	}

	return nil
}

// Stats returns a snapshot of the allocator state.
func (a *Allocator) Stats() Stats {
	a.lock.Acquire()
	defer a.lock.Release()

	s := Stats{Base: a.base, Cursor: a.cursor, Limit: a.limit}
	for ref := a.usedTop; ref != 0; ref = a.block(ref).next {
		s.Used++
	}
	for ref := a.freeTop; ref != 0; ref = a.block(ref).next {
		s.Free++
	}
	return s
}

// VisitUsed invokes visitor for each block in the used list, newest first,
// until visitor returns false. The allocator lock is held for the whole walk
// so visitor must not call back into the allocator.
func (a *Allocator) VisitUsed(visitor func(BlockInfo) bool) {
	a.lock.Acquire()
	defer a.lock.Release()

	for ref := a.usedTop; ref != 0; ref = a.block(ref).next {
		b := a.block(ref)
		if !visitor(BlockInfo{Ref: ref, Chunk: b.chunk, Size: b.size}) {
			return
		}
	}
}

// takeFree unlinks and returns the first free block whose capacity is
// strictly greater than size.
func (a *Allocator) takeFree(size mem.Size) BlockRef {
	var prev BlockRef
	for ref := a.freeTop; ref != 0; {
		b := a.block(ref)
		if b.size > size {
			if prev == 0 {
				a.freeTop = b.next
			} else {
				a.block(prev).next = b.next
			}
			b.next = 0
			return ref
		}

		prev, ref = ref, b.next
	}

	return 0
}

// recycle moves the block identified by ref from the used list to the head of
// the free list. Nothing in the kernel frees memory yet so the only callers
// are tests that need to seed the free list.
func (a *Allocator) recycle(ref BlockRef) {
	var prev BlockRef
	for cur := a.usedTop; cur != 0; prev, cur = cur, a.block(cur).next {
		if cur != ref {
			continue
		}

		if prev == 0 {
			a.usedTop = a.block(cur).next
		} else {
			a.block(prev).next = a.block(cur).next
		}
		break
	}

	a.block(ref).next = a.freeTop
	a.freeTop = ref
}

// carveBlock carves a block record followed by a chunk of size bytes and
// returns a reference to the record. The arena is left untouched if it
// cannot hold both regions.
func (a *Allocator) carveBlock(size mem.Size) BlockRef {
	if !a.fits(size) {
		return 0
	}

	recAddr := a.carve(blockSize)
	chunk := a.carve(size)

	ref := BlockRef(recAddr - a.base + 1)
	b := a.block(ref)
	b.size = alignSize(size)
	b.next = 0
	b.chunk = chunk
	return ref
}

// fits checks whether the arena can hold a block record and a chunk of size
// bytes. Failures are reported through panicFn.
func (a *Allocator) fits(size mem.Size) bool {
	if a.limit == a.base {
		panicFn(errZeroCapacity)
		return false
	}

	recNeed := uintptr(alignSize(blockSize)) + guardOverhead
	if uint64(size) > uint64(maxUintptr-recNeed-guardOverhead-(Alignment-1)) {
		panicFn(errSizeOverflow)
		return false
	}

	if recNeed+uintptr(alignSize(size))+guardOverhead > a.limit-a.cursor {
		panicFn(errOutOfMemory)
		return false
	}

	return true
}

// carve reserves size bytes (rounded up to the allocator alignment) plus two
// guard slots at the arena cursor, writes the guard markers and returns the
// address of the region between them.
func (a *Allocator) carve(size mem.Size) uintptr {
	aligned := uintptr(alignSize(size))
	need := aligned + guardOverhead

	region := a.cursor + guardSlot
	*(*uint32)(unsafe.Pointer(region - guardSize)) = GuardLow
	*(*uint32)(unsafe.Pointer(region + aligned)) = GuardHigh
	a.cursor += need

	if klog.DebugEnabled() {
		logAccounting(uintptr(size), need, aligned)
	}

	return region
}

// logAccounting reports how many bytes a request of size bytes consumed,
// with (sys) and without (real) the guard slots, and the percentage of each
// that is lost to alignment and guards.
func logAccounting(size, sys, payload uintptr) {
	var sysLoss, realLoss uintptr
	sysLoss = ((sys - size) * 100) / sys
	if payload != 0 {
		realLoss = ((payload - size) * 100) / payload
	}

	logLock.Acquire()
	allocLog.Printf("req=%d alloc=[sys=%d real=%d] loss=[sys=%d real=%d]", size, sys, payload, sysLoss, realLoss)
	logLock.Release()
}

func (a *Allocator) block(ref BlockRef) *block {
	return (*block)(unsafe.Pointer(a.recordAddr(ref)))
}

func (a *Allocator) recordAddr(ref BlockRef) uintptr {
	return a.base + uintptr(ref) - 1
}

func guardsIntact(region uintptr, size mem.Size) bool {
	return *(*uint32)(unsafe.Pointer(region - guardSize)) == GuardLow &&
		*(*uint32)(unsafe.Pointer(region + uintptr(size))) == GuardHigh
}

// alignSize rounds size up to the next multiple of Alignment.
func alignSize(size mem.Size) mem.Size {
	return (size + Alignment - 1) &^ (Alignment - 1)
}

package buffer

import (
	"sync"

	"github.com/jobala/kasha/storage/disk"
	"github.com/jobala/kasha/util"
)

func NewClockReplacer(capacity int) *ClockReplacer {
	freeSlots := make([]int, capacity)
	for i := 0; i < capacity; i++ {
		freeSlots[i] = i
	}

	return &ClockReplacer{
		capacity:  capacity,
		slots:     make([]clockSlot, capacity),
		slotOf:    map[int64]int{},
		freeSlots: freeSlots,
	}
}

// Unpin marks pageId as eligible for eviction with its recency bit set. A
// tracked-but-pinned entry is re-marked unpinned, counting toward the size
// exactly once; an already-eligible entry only has its recency bit refreshed.
// Returns util.ErrReplacerFull when the tracked set is at capacity.
func (c *ClockReplacer) Unpin(pageId int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i, ok := c.slotOf[pageId]; ok {
		if c.slots[i].pinned {
			c.slots[i].pinned = false
			c.size++
		}
		c.slots[i].referenced = true
		return nil
	}

	if len(c.freeSlots) == 0 {
		return util.ErrReplacerFull
	}

	i := c.freeSlots[0]
	c.freeSlots = c.freeSlots[1:]

	c.slots[i] = clockSlot{pageId: pageId, referenced: true, inUse: true}
	c.slotOf[pageId] = i
	c.size++

	return nil
}

// Pin removes pageId from eviction eligibility because the pool has pinned
// its frame. The entry stays tracked, marked pinned, so a later Unpin can
// restore it. Pinning an untracked id is a no-op.
func (c *ClockReplacer) Pin(pageId int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.slotOf[pageId]
	if !ok {
		return
	}

	if !c.slots[i].pinned {
		c.slots[i].pinned = true
		c.size--
	}
}

// Victim selects an eviction victim by clock scan: a candidate whose recency
// bit is set gets a second chance (bit cleared, hand advances); one whose bit
// is clear is removed from the tracked set and returned. The hand position
// persists across calls. ok is false only when no entry is eligible.
func (c *ClockReplacer) Victim() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.size == 0 {
		return disk.INVALID_PAGE_ID, false
	}

	for {
		slot := &c.slots[c.hand]
		if !slot.inUse || slot.pinned {
			c.advance()
			continue
		}

		if slot.referenced {
			slot.referenced = false
			c.advance()
			continue
		}

		pageId := slot.pageId
		delete(c.slotOf, pageId)
		c.freeSlots = append(c.freeSlots, c.hand)
		*slot = clockSlot{}
		c.size--
		c.advance()

		return pageId, true
	}
}

// Remove drops pageId from the tracked set entirely, freeing its slot. Used
// when a page stops existing (deletion), as opposed to Pin which keeps the
// entry tracked for a later Unpin. Removing an untracked id is a no-op.
func (c *ClockReplacer) Remove(pageId int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.slotOf[pageId]
	if !ok {
		return
	}

	if !c.slots[i].pinned {
		c.size--
	}
	delete(c.slotOf, pageId)
	c.freeSlots = append(c.freeSlots, i)
	c.slots[i] = clockSlot{}
}

// Size returns the number of eligible (tracked and unpinned) entries.
func (c *ClockReplacer) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.size
}

func (c *ClockReplacer) advance() {
	c.hand = (c.hand + 1) % c.capacity
}

type clockSlot struct {
	pageId     int64
	referenced bool
	pinned     bool
	inUse      bool
}

// ClockReplacer tracks unpinned pages as eviction candidates under a clock
// (second chance) policy. Candidates live in a fixed arena of slots addressed
// by index; there is no per-candidate allocation.
type ClockReplacer struct {
	mu        sync.Mutex
	capacity  int
	size      int
	hand      int
	slots     []clockSlot
	slotOf    map[int64]int
	freeSlots []int
}

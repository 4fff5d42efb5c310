package buffer

import (
	"github.com/jobala/kasha/storage/disk"
)

func newPage() *Page {
	return &Page{
		id:   disk.INVALID_PAGE_ID,
		data: make([]byte, disk.PAGE_SIZE),
	}
}

// Id returns the page identifier currently resident in this frame, or
// disk.INVALID_PAGE_ID when the frame holds no page.
func (p *Page) Id() int64 {
	return p.id
}

// Data returns the frame's byte buffer. The slice is only valid while the
// caller holds a pin on the page.
func (p *Page) Data() []byte {
	return p.data
}

func (p *Page) PinCount() int {
	return p.pinCount
}

func (p *Page) IsDirty() bool {
	return p.dirty
}

// reset clears the frame's identity so it can go back to the free list.
func (p *Page) reset() {
	p.id = disk.INVALID_PAGE_ID
	p.pinCount = 0
	p.dirty = false
}

// zero wipes the buffer so a new page never exposes a previous page's bytes.
func (p *Page) zero() {
	for i := range p.data {
		p.data[i] = 0
	}
}

// Page is a fixed-size frame slot: the resident page's bytes plus the
// metadata the pool needs to manage it. Frames are allocated once at pool
// construction; only their contents change identity.
type Page struct {
	id       int64
	data     []byte
	pinCount int
	dirty    bool
}

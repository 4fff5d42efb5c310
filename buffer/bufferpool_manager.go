package buffer

import (
	"fmt"
	"sync"

	"github.com/jobala/kasha/recovery"
	"github.com/jobala/kasha/storage/disk"
	"github.com/jobala/kasha/util"
	"github.com/sirupsen/logrus"
)

func NewBufferpoolManager(size int, replacer *ClockReplacer, diskManager disk.Manager, logManager *recovery.LogManager) *BufferpoolManager {
	// an undersized replacer could not track every frame, leaving unpinned
	// frames stranded as never-evictable
	if replacer.capacity < size {
		panic(fmt.Sprintf("replacer capacity %d is smaller than the pool size %d", replacer.capacity, size))
	}

	pages := make([]*Page, size)
	freeList := make([]int, size)

	for i := 0; i < size; i++ {
		pages[i] = newPage()
		freeList[i] = i
	}

	return &BufferpoolManager{
		pages:       pages,
		pageTable:   make(map[int64]int),
		freeList:    freeList,
		replacer:    replacer,
		diskManager: diskManager,
		logManager:  logManager,
	}
}

// FetchPage pins pageId's frame and returns it. A cache hit touches no disk;
// a miss claims a frame from the free list or evicts a victim, flushing the
// victim under its old id first when dirty. Returns util.PoolExhaustedError
// when every frame is pinned, util.IoError when the disk manager fails.
//
// The returned page is a borrowed reference, valid until the matching
// UnpinPage call.
func (b *BufferpoolManager) FetchPage(pageId int64) (*Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if idx, ok := b.pageTable[pageId]; ok {
		page := b.pages[idx]
		page.pinCount++
		b.replacer.Pin(pageId)

		return page, nil
	}

	idx, err := b.victim()
	if err != nil {
		return nil, err
	}

	page := b.pages[idx]
	b.pageTable[pageId] = idx
	page.id = pageId
	page.dirty = false
	page.pinCount = 1
	b.replacer.Pin(pageId)

	data, err := b.diskManager.ReadPage(pageId)
	if err != nil {
		// undo the claim so the frame isn't stranded holding garbage
		delete(b.pageTable, pageId)
		page.reset()
		b.returnToFreeList(idx)
		return nil, util.NewIoError(err)
	}
	copy(page.data, data)

	return page, nil
}

// UnpinPage drops one pin from pageId's frame and ORs isDirty into its dirty
// flag. When the pin count reaches zero the frame becomes an eviction
// candidate. Returns false when the page is not resident; otherwise returns
// whether the frame had at least one pin before the call. The count never
// goes negative, an extra unpin is a caller bug that gets clamped.
func (b *BufferpoolManager) UnpinPage(pageId int64, isDirty bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx, ok := b.pageTable[pageId]
	if !ok {
		return false
	}

	page := b.pages[idx]
	wasPinned := page.pinCount > 0

	if isDirty {
		page.dirty = true
	}

	if page.pinCount > 0 {
		page.pinCount--
	}

	if wasPinned && page.pinCount == 0 {
		if err := b.replacer.Unpin(pageId); err != nil {
			logrus.WithError(err).WithField("pageId", pageId).Error("failed handing frame to the replacer")
		}
	}

	return wasPinned
}

// FlushPage writes pageId's current bytes to disk regardless of the dirty
// flag; flushing is caller-requested, not conditional. Returns false when the
// page is not resident or the write fails. Pin state is untouched.
func (b *BufferpoolManager) FlushPage(pageId int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx, ok := b.pageTable[pageId]
	if !ok {
		return false
	}

	page := b.pages[idx]
	if err := b.diskManager.WritePage(pageId, page.data); err != nil {
		logrus.WithError(err).WithField("pageId", pageId).Error("flush failed")
		return false
	}
	page.dirty = false

	return true
}

// FlushAllPages writes every resident page to disk.
func (b *BufferpoolManager) FlushAllPages() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.flushAll()
}

// NewPage allocates a fresh page id on disk and pins a zeroed frame for it.
// The disk id is allocated before frame availability is known, so a failed
// call wastes an identifier; that is accepted. Returns
// util.PoolExhaustedError when every frame is pinned.
func (b *BufferpoolManager) NewPage() (*Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pageId := b.diskManager.AllocatePage()

	idx, err := b.victim()
	if err != nil {
		return nil, err
	}

	page := b.pages[idx]
	page.zero()
	page.id = pageId
	page.dirty = false
	page.pinCount = 1
	b.pageTable[pageId] = idx
	b.replacer.Pin(pageId)

	return page, nil
}

// DeletePage deallocates pageId on disk and, when resident and unpinned,
// discards its frame back to the free list without flushing. Returns false
// when the page is pinned; deleting a non-resident page succeeds trivially.
func (b *BufferpoolManager) DeletePage(pageId int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.diskManager.DeallocatePage(pageId)

	idx, ok := b.pageTable[pageId]
	if !ok {
		return true
	}

	page := b.pages[idx]
	if page.pinCount > 0 {
		return false
	}

	b.replacer.Remove(pageId)
	delete(b.pageTable, pageId)
	page.reset()
	b.returnToFreeList(idx)

	return true
}

// Close flushes every dirty frame before the pool goes away.
func (b *BufferpoolManager) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.flushAll()
}

// victim claims a frame for reuse: free list first, then the replacer. The
// replacer names a victim page id which is resolved to a frame through the
// page table; a dirty victim is flushed under its old id before the frame is
// handed out. Caller must hold b.mu.
func (b *BufferpoolManager) victim() (int, error) {
	if len(b.freeList) > 0 {
		idx := b.freeList[0]
		b.freeList = b.freeList[1:]

		return idx, nil
	}

	victimId, ok := b.replacer.Victim()
	if !ok {
		return -1, util.NewPoolExhaustedError()
	}

	idx, ok := b.pageTable[victimId]
	if !ok {
		panic(fmt.Sprintf("replacer victim %d is not in the page table", victimId))
	}

	page := b.pages[idx]
	if page.dirty {
		logrus.WithFields(logrus.Fields{
			"pageId": page.id,
			"frame":  idx,
		}).Debug("flushing dirty page before eviction")

		if err := b.diskManager.WritePage(page.id, page.data); err != nil {
			// put the victim back so pool state stays consistent
			if unpinErr := b.replacer.Unpin(victimId); unpinErr != nil {
				logrus.WithError(unpinErr).WithField("pageId", victimId).Error("failed handing frame to the replacer")
			}
			return -1, util.NewIoError(err)
		}
		page.dirty = false
	}

	delete(b.pageTable, page.id)

	return idx, nil
}

func (b *BufferpoolManager) flushAll() error {
	for _, page := range b.pages {
		if page.id == disk.INVALID_PAGE_ID {
			continue
		}

		if err := b.diskManager.WritePage(page.id, page.data); err != nil {
			return util.NewIoError(err)
		}
		page.dirty = false
	}

	return nil
}

// returnToFreeList guards against double insertion, which would let two
// callers claim the same frame. That is an invariant breach, not a
// recoverable condition.
func (b *BufferpoolManager) returnToFreeList(idx int) {
	for _, free := range b.freeList {
		if free == idx {
			panic(fmt.Sprintf("frame %d is already in the free list", idx))
		}
	}

	b.freeList = append(b.freeList, idx)
}

// BufferpoolManager mediates every access to on-disk pages, keeping a bounded
// number of frames in memory. One coarse mutex serializes each operation's
// full multi-step sequence (lookup, eviction, metadata mutation); releasing
// it mid-sequence would let two callers claim the same frame. The log manager
// is held for the recovery layer above but never driven from here.
type BufferpoolManager struct {
	mu          sync.Mutex
	pages       []*Page
	pageTable   map[int64]int
	freeList    []int
	replacer    *ClockReplacer
	diskManager disk.Manager
	logManager  *recovery.LogManager
}

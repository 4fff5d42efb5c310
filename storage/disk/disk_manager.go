package disk

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	PAGE_SIZE             = 4096
	DEFAULT_PAGE_CAPACITY = 16
)

const INVALID_PAGE_ID int64 = -1

// Manager persists fixed-size pages addressed by numeric identifier. The
// buffer pool only ever talks to this interface, which lets tests substitute
// a recording fake for the file-backed implementation.
type Manager interface {
	AllocatePage() int64
	DeallocatePage(pageId int64)
	ReadPage(pageId int64) ([]byte, error)
	WritePage(pageId int64, data []byte) error
}

func NewManager(file *os.File) *diskManager {
	return &diskManager{
		dbFile:       file,
		pageCapacity: DEFAULT_PAGE_CAPACITY,
		offsets:      map[int64]int64{},
		freeSlots:    []int64{},
	}
}

// AllocatePage hands out a fresh, never-before-used page id. The file slot
// backing the id is assigned lazily on first write.
func (dm *diskManager) AllocatePage() int64 {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	pageId := dm.nextPageId
	dm.nextPageId++

	return pageId
}

// DeallocatePage releases the page's file slot for reuse. Unknown ids are
// ignored.
func (dm *diskManager) DeallocatePage(pageId int64) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if offset, ok := dm.offsets[pageId]; ok {
		dm.freeSlots = append(dm.freeSlots, offset)
		delete(dm.offsets, pageId)
	}
}

// ReadPage returns the persisted bytes for pageId. A page that was never
// written reads back as zeroes.
func (dm *diskManager) ReadPage(pageId int64) ([]byte, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	buf := make([]byte, PAGE_SIZE)
	offset, ok := dm.offsets[pageId]
	if !ok {
		return buf, nil
	}

	if _, err := dm.dbFile.ReadAt(buf, offset); err != nil {
		return nil, errors.Wrapf(err, "reading page %d at offset %d", pageId, offset)
	}

	return buf, nil
}

// WritePage persists data under pageId, durable before returning.
func (dm *diskManager) WritePage(pageId int64, data []byte) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	offset, ok := dm.offsets[pageId]
	if !ok {
		var err error
		if offset, err = dm.allocateSlot(); err != nil {
			return err
		}
		dm.offsets[pageId] = offset
	}

	if _, err := dm.dbFile.WriteAt(data, offset); err != nil {
		return errors.Wrapf(err, "writing page %d at offset %d", pageId, offset)
	}

	if err := dm.dbFile.Sync(); err != nil {
		return errors.Wrapf(err, "syncing page %d", pageId)
	}

	return nil
}

func (dm *diskManager) allocateSlot() (int64, error) {
	if len(dm.freeSlots) > 0 {
		offset := dm.freeSlots[0]
		dm.freeSlots = dm.freeSlots[1:]

		return offset, nil
	}

	if dm.nextSlot()/PAGE_SIZE+1 > int64(dm.pageCapacity) {
		dm.pageCapacity *= 2
		if err := os.Truncate(dm.dbFile.Name(), int64(dm.pageCapacity)*PAGE_SIZE); err != nil {
			return -1, errors.Wrap(err, "resizing db file")
		}

		logrus.WithFields(logrus.Fields{
			"file":     dm.dbFile.Name(),
			"capacity": dm.pageCapacity,
		}).Debug("resized db file")
	}

	offset := dm.nextSlot()
	dm.usedSlots++
	return offset, nil
}

func (dm *diskManager) nextSlot() int64 {
	return dm.usedSlots * PAGE_SIZE
}

type diskManager struct {
	mu           sync.Mutex
	dbFile       *os.File
	offsets      map[int64]int64
	freeSlots    []int64
	nextPageId   int64
	usedSlots    int64
	pageCapacity int
}

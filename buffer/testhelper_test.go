package buffer

import (
	"github.com/jobala/kasha/storage/disk"
)

// fakeDiskManager records every disk interaction so tests can assert on
// ordering, like dirty pages being written before their frame is reused.
type fakeDiskManager struct {
	nextPageId  int64
	pages       map[int64][]byte
	writes      []int64
	reads       []int64
	deallocated []int64
}

func newFakeDiskManager() *fakeDiskManager {
	return &fakeDiskManager{pages: map[int64][]byte{}}
}

func (f *fakeDiskManager) AllocatePage() int64 {
	pageId := f.nextPageId
	f.nextPageId++
	return pageId
}

func (f *fakeDiskManager) DeallocatePage(pageId int64) {
	f.deallocated = append(f.deallocated, pageId)
	delete(f.pages, pageId)
}

func (f *fakeDiskManager) ReadPage(pageId int64) ([]byte, error) {
	f.reads = append(f.reads, pageId)

	buf := make([]byte, disk.PAGE_SIZE)
	if data, ok := f.pages[pageId]; ok {
		copy(buf, data)
	}
	return buf, nil
}

func (f *fakeDiskManager) WritePage(pageId int64, data []byte) error {
	f.writes = append(f.writes, pageId)

	buf := make([]byte, disk.PAGE_SIZE)
	copy(buf, data)
	f.pages[pageId] = buf
	return nil
}

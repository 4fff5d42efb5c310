package disk

import (
	"sync"
)

func NewScheduler(manager Manager) *DiskScheduler {
	ds := &DiskScheduler{
		reqCh:       make(chan DiskReq, 100),
		pageQueue:   make(map[int64]chan DiskReq),
		pageQueueMu: sync.Mutex{},
		manager:     manager,
	}

	go ds.handleDiskReq()
	return ds
}

func NewRequest(pageId int64, data []byte, isWrite bool) DiskReq {
	respCh := make(chan DiskResp)
	return DiskReq{
		PageId: pageId,
		Data:   data,
		Write:  isWrite,
		RespCh: respCh,
	}
}

func (ds *DiskScheduler) Schedule(req DiskReq) <-chan DiskResp {
	ds.reqCh <- req
	return req.RespCh
}

func (ds *DiskScheduler) handleDiskReq() {
	for req := range ds.reqCh {
		// the send happens under the lock so a worker that is about to exit
		// cannot delete the queue between the lookup and the send
		ds.pageQueueMu.Lock()
		queue, ok := ds.pageQueue[req.PageId]
		if !ok {
			queue = make(chan DiskReq, 10)
			ds.pageQueue[req.PageId] = queue
		}
		queue <- req
		ds.pageQueueMu.Unlock()

		// !ok means we created a new page queue, therefore we should start a
		// new worker to handle the queue's page requests
		if !ok {
			go ds.pageWorker(req.PageId, queue)
		}
	}
}

func (ds *DiskScheduler) pageWorker(pageId int64, reqQueue chan DiskReq) {
	for {
		select {
		case req := <-reqQueue:
			if req.Write {
				if err := ds.manager.WritePage(req.PageId, req.Data); err != nil {
					req.RespCh <- DiskResp{Success: false}
				} else {
					req.RespCh <- DiskResp{Success: true}
				}
			} else {
				if data, err := ds.manager.ReadPage(req.PageId); err != nil {
					req.RespCh <- DiskResp{Success: false}
				} else {
					req.RespCh <- DiskResp{Success: true, Data: data}
				}
			}

		default:
			// re-check under the lock: the dispatcher may have queued another
			// request after the drained receive above
			ds.pageQueueMu.Lock()
			if len(reqQueue) > 0 {
				ds.pageQueueMu.Unlock()
				continue
			}
			delete(ds.pageQueue, pageId)
			ds.pageQueueMu.Unlock()
			return
		}
	}
}

type DiskScheduler struct {
	reqCh   chan DiskReq
	manager Manager

	pageQueue   map[int64]chan DiskReq
	pageQueueMu sync.Mutex
}

type DiskReq struct {
	PageId int64
	Data   []byte
	Write  bool
	RespCh chan DiskResp
}

type DiskResp struct {
	Success bool
	Data    []byte
}

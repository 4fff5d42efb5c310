package recovery

import (
	"io"
	"sync"

	"github.com/vmihailenco/msgpack"
)

// LogManager buffers write-ahead log records and flushes them to a sink. The
// buffer pool holds a reference to it for the recovery layer above; nothing
// in the pool itself appends records.
type LogManager struct {
	mu      sync.Mutex
	out     io.Writer
	nextLsn int64
	buffer  [][]byte
}

type LogRecord struct {
	Lsn    int64
	PageId int64
	Op     string
	Data   []byte
}

func NewLogManager(out io.Writer) *LogManager {
	return &LogManager{out: out}
}

// Append assigns the record a log sequence number and buffers it. Records
// only become durable on Flush.
func (l *LogManager) Append(record LogRecord) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	record.Lsn = l.nextLsn
	l.nextLsn++

	encoded, err := msgpack.Marshal(record)
	if err != nil {
		return 0, err
	}
	l.buffer = append(l.buffer, encoded)

	return record.Lsn, nil
}

// Flush writes all buffered records to the sink and clears the buffer.
func (l *LogManager) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, record := range l.buffer {
		if _, err := l.out.Write(record); err != nil {
			return err
		}
	}
	l.buffer = nil

	return nil
}

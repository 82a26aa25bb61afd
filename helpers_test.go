package mosaic_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/stretchr/testify/require"

	mosaic "github.com/scopedb/mosaic-go"
)

// chunkStream serves chunks from a buffer it reuses between calls.
type chunkStream struct {
	chunks [][]byte
	failAt int
	err    error

	buf    []byte
	next   int
	closed bool
}

func newChunkStream(chunks ...[]byte) *chunkStream {
	return &chunkStream{chunks: chunks, failAt: -1}
}

func (s *chunkStream) Next(_ context.Context) ([]byte, error) {
	if s.next == s.failAt {
		return nil, s.err
	}
	if s.next >= len(s.chunks) {
		return nil, io.EOF
	}
	chunk := s.chunks[s.next]
	s.next++
	s.buf = append(s.buf[:0], chunk...)
	return s.buf, nil
}

func (s *chunkStream) Close() error {
	s.closed = true
	return nil
}

// fakeBackend answers notReady start/poll calls with "running" before the
// statement finishes with result as its stream. A non-nil streamErr fails the
// stream at chunk streamFailAt.
type fakeBackend struct {
	mu sync.Mutex

	notReady   int
	result     []byte
	chunkSize  int
	totalBytes *int64
	status     mosaic.StatementStatus
	message    string
	noHeader   bool
	wrongID    bool
	headerID   *string
	startErr   error
	onPoll     func(n int)

	streamFailAt int
	streamErr    error

	id        string
	served    int
	starts    int
	polls     int
	streams   int
	cancels   int
	cancelErr error
	stream    *chunkStream
}

var _ mosaic.RemoteBackend = (*fakeBackend)(nil)

func (b *fakeBackend) StartQuery(_ context.Context, req *mosaic.StatementRequest) (*mosaic.StatementResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.starts++
	if b.startErr != nil {
		return nil, b.startErr
	}
	b.id = req.StatementID.String()
	return b.respond(), nil
}

func (b *fakeBackend) PollQuery(_ context.Context, id string) (*mosaic.StatementResponse, error) {
	b.mu.Lock()
	b.polls++
	n := b.polls
	resp := b.respond()
	hook := b.onPoll
	b.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	return resp, nil
}

func (b *fakeBackend) respond() *mosaic.StatementResponse {
	id := b.id
	if b.wrongID {
		id = "00000000-0000-0000-0000-000000000000"
	}
	if b.served < b.notReady {
		b.served++
		return &mosaic.StatementResponse{StatementID: id, Status: mosaic.StatementStatusRunning}
	}
	if b.status != "" {
		return &mosaic.StatementResponse{StatementID: id, Status: b.status, Message: b.message}
	}

	resp := &mosaic.StatementResponse{StatementID: id, Status: mosaic.StatementStatusFinished}
	if !b.noHeader {
		total := int64(len(b.result))
		if b.totalBytes != nil {
			total = *b.totalBytes
		}
		resp.Header = &mosaic.ResultHeader{
			StatementID: b.id,
			Format:      mosaic.ResultFormatArrow,
			TotalBytes:  total,
		}
		if b.headerID != nil {
			resp.Header.StatementID = *b.headerID
		}
	}
	return resp
}

func (b *fakeBackend) StreamChunks(_ context.Context, header *mosaic.ResultHeader) (mosaic.ChunkStream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.streams++
	if header.StatementID != b.id {
		return nil, errors.New("unknown statement")
	}

	size := b.chunkSize
	if size <= 0 {
		size = 7
	}
	var chunks [][]byte
	for off := 0; off < len(b.result); off += size {
		chunks = append(chunks, b.result[off:min(off+size, len(b.result))])
	}
	b.stream = newChunkStream(chunks...)
	if b.streamErr != nil {
		b.stream.failAt = b.streamFailAt
		b.stream.err = b.streamErr
	}
	return b.stream, nil
}

func (b *fakeBackend) CancelQuery(ctx context.Context, id string) (mosaic.StatementStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancels++
	b.cancelErr = ctx.Err()
	return mosaic.StatementStatusCancelled, nil
}

func fastPoll() mosaic.Option {
	return mosaic.WithPollOptions(mosaic.PollOptions{
		Interval:    time.Millisecond,
		MaxInterval: 2 * time.Millisecond,
		MaxAttempts: 100,
	})
}

// makeTable builds a three column table with a null in every column.
func makeTable(t testing.TB) *mosaic.Table {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "score", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	}, nil)

	b := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer b.Release()
	b.Field(0).(*array.Int64Builder).AppendValues([]int64{1, 2, 0}, []bool{true, true, false})
	b.Field(1).(*array.StringBuilder).AppendValues([]string{"a", "", "c"}, []bool{true, false, true})
	b.Field(2).(*array.Float64Builder).AppendValues([]float64{0, 2.5, 3.75}, []bool{false, true, true})

	table := mosaic.NewTable(schema, b.NewRecord())
	t.Cleanup(table.Release)
	return table
}

func encodeTable(t testing.TB, table *mosaic.Table) []byte {
	data, err := mosaic.EncodeTable(table)
	require.NoError(t, err)
	return data
}

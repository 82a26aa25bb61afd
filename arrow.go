package mosaic

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/ipc"
)

// DecodeTable decodes a complete Arrow IPC stream into a Table.
//
// Decoding either fully succeeds or fails with a *FormatError; no partial
// table is returned. The stream must end with its end-of-stream marker and
// nothing may follow it. Column names and types are taken from the stream as is.
func DecodeTable(data []byte) (table *Table, err error) {
	src := &streamSource{r: bytes.NewReader(data)}
	reader, err := ipc.NewReader(src)
	if err != nil {
		return nil, &FormatError{Err: err}
	}
	defer reader.Release()

	records := make([]arrow.Record, 0)
	defer func() {
		if err != nil {
			for _, rec := range records {
				rec.Release()
			}
		}
	}()

	for reader.Next() {
		rec := reader.Record()
		rec.Retain()
		records = append(records, rec)
	}
	if rerr := reader.Err(); rerr != nil {
		err = &FormatError{Err: rerr}
		return nil, err
	}
	// The reader treats running out of input between messages like the
	// end-of-stream marker, so a stream cut at a batch boundary gets here.
	if src.exhausted {
		err = &FormatError{Err: errMissingEOS}
		return nil, err
	}
	if n := src.r.Len(); n > 0 {
		err = &FormatError{Err: fmt.Errorf("%d trailing bytes after end of stream", n)}
		return nil, err
	}
	return NewTable(reader.Schema(), records...), nil
}

var errMissingEOS = errors.New("stream ended without an end-of-stream marker")

// streamSource records whether the decoder asked for bytes past the end of
// its input. The IPC reader stops at the end-of-stream marker without reading
// further.
type streamSource struct {
	r         *bytes.Reader
	exhausted bool
}

func (s *streamSource) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if errors.Is(err, io.EOF) {
		s.exhausted = true
	}
	return n, err
}

// EncodeTable encodes the table as an Arrow IPC stream.
func EncodeTable(table *Table) (payload []byte, err error) {
	if table == nil {
		return nil, errors.New("cannot encode nil table")
	}

	var buf bytes.Buffer
	writer := ipc.NewWriter(&buf, ipc.WithSchema(table.Schema()))
	defer func() {
		if writer != nil {
			err = errors.Join(err, writer.Close())
		}
	}()

	for _, rec := range table.Records() {
		if err := writer.Write(rec); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		writer = nil
		return nil, err
	}
	writer = nil
	return buf.Bytes(), nil
}

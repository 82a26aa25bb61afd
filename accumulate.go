package mosaic

import (
	"bytes"
	"context"
	"errors"
	"io"
)

// Accumulate reads stream to the end and returns its chunks concatenated in
// arrival order.
//
// Chunks are retained until the total length is known, then copied into one
// buffer of exactly that size. An empty stream yields a zero-length buffer.
// If the stream or ctx fails before io.EOF, everything read so far is
// discarded and the error is returned. The caller owns closing the stream.
func Accumulate(ctx context.Context, stream ChunkStream) ([]byte, error) {
	var (
		chunks [][]byte
		total  int
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		chunk, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		// streams may reuse their read buffer
		chunks = append(chunks, bytes.Clone(chunk))
		total += len(chunk)
	}

	buf := make([]byte, total)
	offset := 0
	for _, chunk := range chunks {
		offset += copy(buf[offset:], chunk)
	}
	return buf, nil
}

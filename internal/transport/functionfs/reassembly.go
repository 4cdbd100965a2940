package functionfs

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/marmos91/mtpd/internal/container"
	"github.com/marmos91/mtpd/internal/mtptypes"
)

// UnknownLengthResolver is consulted when a container's length field is
// 0xFFFFFFFF (the Android ">4 GiB object" SendObject case, spec.md §4.5.3):
// given the bytes received so far (at least a full header), it returns the
// true total container length if it can be determined yet.
type UnknownLengthResolver func(partial []byte) (total uint64, ok bool)

// reassembler accumulates raw bulk-OUT bytes into complete containers
// (spec.md §4.5.3): it reads the length field from the first packet, then
// consumes exactly that many bytes before handing a container back.
type reassembler struct {
	buf            []byte
	resolveUnknown UnknownLengthResolver
}

func newReassembler(resolve UnknownLengthResolver) *reassembler {
	return &reassembler{resolveUnknown: resolve}
}

// feed appends newly-read bytes and returns any containers that became
// complete as a result. Leftover partial bytes remain buffered for the
// next call.
func (r *reassembler) feed(data []byte) ([]*container.Container, error) {
	r.buf = append(r.buf, data...)

	var out []*container.Container
	for {
		if len(r.buf) < mtptypes.HeaderSize {
			break
		}
		length := uint64(binary.LittleEndian.Uint32(r.buf[0:4]))
		if length == uint64(mtptypes.UnknownLength) {
			if r.resolveUnknown == nil {
				break
			}
			resolved, ok := r.resolveUnknown(r.buf)
			if !ok {
				break
			}
			length = resolved
		}
		if length < mtptypes.HeaderSize {
			return out, fmt.Errorf("functionfs: container length %d shorter than header", length)
		}
		if uint64(len(r.buf)) < length {
			break
		}

		frame := make([]byte, length)
		copy(frame, r.buf[:length])
		r.buf = append([]byte(nil), r.buf[length:]...)

		c, err := container.ReadFrom(bytes.NewReader(frame))
		if err != nil {
			return out, err
		}
		out = append(out, c)
	}
	return out, nil
}

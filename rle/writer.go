package rle

import "io"

type state int

const (
	stateRun state = iota
	stateLiteral
)

// next decides the kind and length of the segment starting at frame[i].
func next(frame []uint16, i int) (state, int) {
	if n := runLength(frame, i, MaxSegment); n >= runThreshold {
		return stateRun, n
	}

	// Stop the literal one short of any run worth encoding so the next
	// segment picks it up
	n := 1
	for n < MaxSegment && i+n < len(frame) && runLength(frame, i+n, runThreshold) < runThreshold {
		n++
	}
	return stateLiteral, n
}

func appendSegment(dst []byte, s state, values []uint16) []byte {
	switch s {
	case stateRun:
		dst = append(dst, header(true, len(values)))
		dst = append(dst, byte(values[0]), byte(values[0]>>8))
	case stateLiteral:
		dst = append(dst, header(false, len(values)))
		for _, c := range values {
			dst = append(dst, byte(c), byte(c>>8))
		}
	}
	return dst
}

// AppendEncode compresses frame, appending the segments to dst and returning
// the extended slice.
func AppendEncode(dst []byte, frame []uint16) []byte {
	for i := 0; i < len(frame); {
		s, n := next(frame, i)
		dst = appendSegment(dst, s, frame[i:i+n])
		i += n
	}
	return dst
}

// Encode returns the compressed form of frame.
func Encode(frame []uint16) []byte {
	// Worst case is every pixel in a literal, plus one header per segment
	size := len(frame)*colorBytes + (len(frame)+MaxSegment-1)/MaxSegment
	return AppendEncode(make([]byte, 0, size), frame)
}

// EncodeTo compresses frame and writes each segment to w as it is produced.
// The returned int64 gives the number of bytes written, only valid if no
// error occurred.
func EncodeTo(w io.Writer, frame []uint16) (int64, error) {
	segment := make([]byte, 0, 1+MaxSegment*colorBytes)

	var written int64
	for i := 0; i < len(frame); {
		s, n := next(frame, i)
		segment = appendSegment(segment[:0], s, frame[i:i+n])

		nw, err := w.Write(segment)
		written += int64(nw)
		if err != nil {
			return written, err
		}
		i += n
	}

	return written, nil
}

package rle

func readColor(data []byte, i int) uint16 {
	return uint16(data[i]) | uint16(data[i+1])<<8
}

// segmentSize returns the number of bytes the segment with the given header
// occupies, header included.
func segmentSize(run bool, count int) int {
	if run {
		return 1 + colorBytes
	}
	return 1 + count*colorBytes
}

type decoder struct {
	data []byte
	pos  int
}

// next returns the header of the following segment and the offset of its
// first color, checking the whole segment is present.
func (d *decoder) next() (bool, int, int, error) {
	run, count := parseHeader(d.data[d.pos])
	size := segmentSize(run, count)
	if d.pos+size > len(d.data) {
		return false, 0, 0, ErrTruncated
	}
	start := d.pos + 1
	d.pos += size
	return run, count, start, nil
}

func (d *decoder) more() bool {
	return d.pos < len(d.data)
}

// AppendDecode decompresses data, appending the pixels to dst.
func AppendDecode(dst []uint16, data []byte) ([]uint16, error) {
	d := decoder{data: data}
	for d.more() {
		run, count, start, err := d.next()
		if err != nil {
			return dst, err
		}

		if run {
			c := readColor(data, start)
			for i := 0; i < count; i++ {
				dst = append(dst, c)
			}
			continue
		}

		for i := 0; i < count; i++ {
			dst = append(dst, readColor(data, start+i*colorBytes))
		}
	}
	return dst, nil
}

// Decode returns the pixels held in data. The only possible failure is
// truncated input.
func Decode(data []byte) ([]uint16, error) {
	n, err := DecodedLen(data)
	if err != nil {
		return nil, err
	}
	return AppendDecode(make([]uint16, 0, n), data)
}

// DecodedLen returns the number of pixels data decompresses to without
// decoding it.
func DecodedLen(data []byte) (int, error) {
	var n int
	d := decoder{data: data}
	for d.more() {
		_, count, _, err := d.next()
		if err != nil {
			return 0, err
		}
		n += count
	}
	return n, nil
}

// DecodeRange decodes count pixels starting at pixel start. Segments wholly
// before the range are skipped without being expanded, which allows a frame
// to be drawn in bands without holding all of it in memory.
func DecodeRange(data []byte, start, count int) ([]uint16, error) {
	if start < 0 || count < 0 {
		return nil, ErrOutOfRange
	}

	out := make([]uint16, 0, count)
	end := start + count

	var pixel int
	d := decoder{data: data}
	for d.more() && pixel < end {
		run, n, offset, err := d.next()
		if err != nil {
			return nil, err
		}

		lo, hi := pixel, pixel+n
		pixel = hi
		if hi <= start {
			continue
		}
		if lo < start {
			lo = start
		}
		if hi > end {
			hi = end
		}

		for p := lo; p < hi; p++ {
			if run {
				out = append(out, readColor(data, offset))
			} else {
				out = append(out, readColor(data, offset+(p-(pixel-n))*colorBytes))
			}
		}
	}

	if pixel < start || len(out) < count {
		return nil, ErrOutOfRange
	}
	return out, nil
}

// Stats summarises the segments making up a compressed frame.
type Stats struct {
	Runs          int
	Literals      int
	RunPixels     int
	LiteralPixels int
}

// Pixels returns the total number of pixels.
func (s Stats) Pixels() int {
	return s.RunPixels + s.LiteralPixels
}

// Analyze walks the segments in data and counts them.
func Analyze(data []byte) (Stats, error) {
	var s Stats
	d := decoder{data: data}
	for d.more() {
		run, count, _, err := d.next()
		if err != nil {
			return Stats{}, err
		}
		if run {
			s.Runs++
			s.RunPixels += count
		} else {
			s.Literals++
			s.LiteralPixels += count
		}
	}
	return s, nil
}

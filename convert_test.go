package vid_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"io/ioutil"
	"log"
	"testing"

	"github.com/bodgit/vid"
	"github.com/bodgit/vid/container"
	"github.com/bodgit/vid/rgb565"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

var (
	red   = []byte{0xff, 0x00, 0x00}
	green = []byte{0x00, 0xff, 0x00}
	blue  = []byte{0x00, 0x00, 0xff}
)

type sliceSource struct {
	frames [][]byte
	err    error
}

func (s *sliceSource) NextFrame() ([]byte, error) {
	if len(s.frames) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	return f, nil
}

func pixels(colors ...[]byte) []byte {
	return bytes.Join(colors, nil)
}

func newConverter() *vid.Converter {
	return vid.New(log.New(ioutil.Discard, "", 0))
}

type sink struct {
	buffer []byte
	io.WriteSeeker
}

func newSink() *sink {
	b := make([]byte, 1<<20)
	return &sink{b, bytesextra.NewReadWriteSeeker(b)}
}

func (s *sink) reader(t *testing.T, size int64) *container.Reader {
	cr, err := container.NewReader(bytes.NewReader(s.buffer[:size]), size)
	require.NoError(t, err)
	return cr
}

func TestConvertLayout(t *testing.T) {
	src := &sliceSource{frames: [][]byte{
		pixels(red, red),
		pixels(red, blue),
	}}
	meta := vid.Metadata{Frames: 2, Width: 2, Height: 1, FPS: 29.97}

	s := newSink()
	result, err := newConverter().Convert(context.Background(), src, meta, s, vid.Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Frames)
	assert.Equal(t, 2, result.Declared)
	assert.EqualValues(t, 8, result.RawBytes)
	assert.EqualValues(t, 20+2*8+result.CompressedBytes, result.Size)

	require.Len(t, result.Entries, 2)
	assert.EqualValues(t, 36, result.Entries[0].Offset)
	assert.EqualValues(t, 36+result.Entries[0].Size, result.Entries[1].Offset)

	cr := s.reader(t, result.Size)
	assert.EqualValues(t, 29, cr.Header().FPS, "frame rate should be truncated")
	assert.EqualValues(t, 20, cr.Header().IndexOffset)

	frame, err := cr.Frame(1)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0xf800, 0x001f}, frame)
}

func TestConvertPreservesOrder(t *testing.T) {
	const (
		n      = 64
		width  = 16
		height = 4
	)

	var frames [][]byte
	for i := 0; i < n; i++ {
		f := make([]byte, width*height*3)
		for p := 0; p < len(f); p += 3 {
			f[p], f[p+1], f[p+2] = byte(i*4), byte(p/3), byte(p/12)
		}
		frames = append(frames, f)
	}

	src := &sliceSource{frames: append([][]byte(nil), frames...)}
	meta := vid.Metadata{Frames: n, Width: width, Height: height, FPS: 10}

	s := newSink()
	result, err := newConverter().Convert(context.Background(), src, meta, s, vid.Options{Workers: 8})
	require.NoError(t, err)
	require.Equal(t, n, result.Frames)

	cr := s.reader(t, result.Size)
	require.Equal(t, n, cr.Len())
	for i, f := range frames {
		decoded, err := cr.Frame(i)
		require.NoError(t, err)
		assert.Equal(t, rgb565.QuantizeFrame(nil, f), decoded, "frame %d", i)
	}
	assert.NoError(t, cr.Verify())
}

func TestConvertShortSource(t *testing.T) {
	meta := vid.Metadata{Frames: 3, Width: 1, Height: 1, FPS: 24}

	s := newSink()
	src := &sliceSource{frames: [][]byte{green, blue}}
	result, err := newConverter().Convert(context.Background(), src, meta, s, vid.Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Frames)
	assert.Equal(t, 3, result.Declared)

	cr := s.reader(t, result.Size)
	assert.EqualValues(t, 2, cr.Header().FrameCount, "frame count should match the frames written")
	assert.Equal(t, 2, cr.Len())

	src = &sliceSource{frames: [][]byte{green, blue}}
	_, err = newConverter().Convert(context.Background(), src, meta, newSink(), vid.Options{Strict: true})
	assert.ErrorIs(t, err, vid.ErrShortSource)
}

func TestConvertStopsAtDeclaredCount(t *testing.T) {
	meta := vid.Metadata{Frames: 1, Width: 1, Height: 1, FPS: 24}
	src := &sliceSource{frames: [][]byte{green, blue, red}}

	result, err := newConverter().Convert(context.Background(), src, meta, newSink(), vid.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Frames)
	assert.Len(t, src.frames, 2, "only the declared frames should be read")
}

func TestConvertFrameSize(t *testing.T) {
	meta := vid.Metadata{Frames: 2, Width: 2, Height: 1, FPS: 24}
	src := &sliceSource{frames: [][]byte{pixels(red, red), red}}

	_, err := newConverter().Convert(context.Background(), src, meta, newSink(), vid.Options{Workers: 1})
	assert.ErrorIs(t, err, vid.ErrFrameSize)
}

func TestConvertSourceError(t *testing.T) {
	failure := errors.New("decoder crashed")
	meta := vid.Metadata{Frames: 4, Width: 1, Height: 1, FPS: 24}
	src := &sliceSource{frames: [][]byte{red}, err: failure}

	_, err := newConverter().Convert(context.Background(), src, meta, newSink(), vid.Options{})
	assert.ErrorIs(t, err, failure)
}

type unseekable struct {
	bytes.Buffer
}

func (*unseekable) Seek(int64, int) (int64, error) {
	return 0, errors.New("illegal seek")
}

func TestConvertNotSeekable(t *testing.T) {
	meta := vid.Metadata{Frames: 1, Width: 1, Height: 1, FPS: 24}
	_, err := newConverter().Convert(context.Background(), &sliceSource{frames: [][]byte{red}}, meta, &unseekable{}, vid.Options{})
	assert.ErrorIs(t, err, container.ErrNotSeekable)
}

func TestConvertBadMetadata(t *testing.T) {
	tests := []struct {
		name string
		meta vid.Metadata
	}{
		{"zero width", vid.Metadata{Frames: 1, Width: 0, Height: 1, FPS: 24}},
		{"too tall", vid.Metadata{Frames: 1, Width: 1, Height: 70000, FPS: 24}},
		{"negative frames", vid.Metadata{Frames: -1, Width: 1, Height: 1, FPS: 24}},
		{"negative fps", vid.Metadata{Frames: 1, Width: 1, Height: 1, FPS: -1}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := newConverter().Convert(context.Background(), &sliceSource{}, test.meta, newSink(), vid.Options{})
			assert.Error(t, err)
		})
	}
}

func TestConvertClampsFPS(t *testing.T) {
	meta := vid.Metadata{Frames: 1, Width: 1, Height: 1, FPS: 300}

	s := newSink()
	result, err := newConverter().Convert(context.Background(), &sliceSource{frames: [][]byte{red}}, meta, s, vid.Options{})
	require.NoError(t, err)
	assert.EqualValues(t, 255, s.reader(t, result.Size).Header().FPS)
	assert.EqualValues(t, 255, result.Header.FPS)
	assert.EqualValues(t, 255, meta.Rate())
}

func TestMetadataRate(t *testing.T) {
	tables := []struct {
		fps  float64
		rate uint8
	}{
		{0, 0},
		{23.976, 23},
		{30, 30},
		{254.9, 254},
		{255, 255},
		{1000, 255},
	}

	for _, table := range tables {
		assert.Equal(t, table.rate, vid.Metadata{FPS: table.fps}.Rate(), "fps %v", table.fps)
	}
}

func TestConvertCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	meta := vid.Metadata{Frames: 2, Width: 1, Height: 1, FPS: 24}
	_, err := newConverter().Convert(ctx, &sliceSource{frames: [][]byte{red, green}}, meta, newSink(), vid.Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

// cancellingSource supplies frames indefinitely but cancels the conversion
// once the given number of frames have been read.
type cancellingSource struct {
	after  int
	cancel context.CancelFunc
	read   int
}

func (s *cancellingSource) NextFrame() ([]byte, error) {
	s.read++
	if s.read == s.after {
		s.cancel()
	}
	return pixels(red, green), nil
}

func TestConvertCancelledMidway(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &cancellingSource{after: 5, cancel: cancel}
	meta := vid.Metadata{Frames: 1000, Width: 2, Height: 1, FPS: 24}

	s := newSink()
	_, err := newConverter().Convert(ctx, src, meta, s, vid.Options{Workers: 4})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, src.read, meta.Frames, "reading should stop once cancelled")

	// Left unfinished so it can't be mistaken for a valid container
	assert.Equal(t, []byte("VID0"), s.buffer[:4])
	assert.EqualValues(t, 0, binary.LittleEndian.Uint32(s.buffer[16:]), "index offset should not be patched")
	_, err = container.NewReader(bytes.NewReader(s.buffer[:4096]), 4096)
	assert.Error(t, err)
}

func TestResultReduction(t *testing.T) {
	r := vid.Result{RawBytes: 200, CompressedBytes: 50}
	assert.InDelta(t, 75.0, r.Reduction(), 0.001)
	assert.Zero(t, (&vid.Result{}).Reduction())
}

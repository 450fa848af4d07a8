package source

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/bodgit/vid/rgb565"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaledHeight(t *testing.T) {
	tables := []struct {
		width, srcWidth, srcHeight int
		height                     int
	}{
		{240, 1920, 1080, 135},
		{240, 640, 480, 180},
		{100, 333, 100, 30},
		{10, 1000, 1, 1},
	}

	for _, table := range tables {
		assert.Equal(t, table.height, scaledHeight(table.width, table.srcWidth, table.srcHeight))
	}
}

func TestOptionsSize(t *testing.T) {
	w, h := Options{}.size(320, 200)
	assert.Equal(t, 320, w)
	assert.Equal(t, 200, h)

	w, h = Options{Width: 160}.size(320, 200)
	assert.Equal(t, 160, w)
	assert.Equal(t, 100, h)
}

func uniform(c color.Color, width, height int) *image.RGBA {
	m := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(m, m.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
	return m
}

func writePNG(t *testing.T, path string, m image.Image) {
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, m))
}

func pack(pix []byte) []uint16 {
	return rgb565.QuantizeFrame(nil, pix)
}

func TestPrepare(t *testing.T) {
	m := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	m.Set(0, 0, color.NRGBA{0x10, 0x20, 0x30, 0xff})
	m.Set(1, 0, color.NRGBA{0x40, 0x50, 0x60, 0xff})

	pix := Options{}.prepare(m, 2, 1)
	assert.Equal(t, []byte{0x10, 0x20, 0x30, 0x40, 0x50, 0x60}, pix)

	rgba := uniform(color.RGBA{0xff, 0x00, 0x00, 0xff}, 2, 1)
	pix = Options{}.prepare(rgba, 2, 1)
	assert.Equal(t, []byte{0xff, 0x00, 0x00, 0xff, 0x00, 0x00}, pix)

	pix[0] = 0
	assert.Equal(t, uint8(0xff), rgba.Pix[0], "prepared frame should not share memory")
}

func TestPrepareColors(t *testing.T) {
	m := image.NewRGBA(image.Rect(0, 0, 16, 1))
	for x := 0; x < 16; x++ {
		m.Set(x, 0, color.RGBA{uint8(x * 16), uint8(255 - x*16), 0x80, 0xff})
	}

	pix := Options{Colors: 2}.prepare(m, 16, 1)
	require.Len(t, pix, 16*3)

	unique := make(map[uint16]struct{})
	for _, c := range pack(pix) {
		unique[c] = struct{}{}
	}
	assert.LessOrEqual(t, len(unique), 2)
}

func TestImages(t *testing.T) {
	dir := t.TempDir()

	paths := []string{
		filepath.Join(dir, "0.png"),
		filepath.Join(dir, "1.png"),
		filepath.Join(dir, "2.png"),
	}
	writePNG(t, paths[0], uniform(color.RGBA{0xff, 0x00, 0x00, 0xff}, 8, 4))
	writePNG(t, paths[1], uniform(color.RGBA{0x00, 0x00, 0xff, 0xff}, 8, 4))
	// Different size, scaled to match the first
	writePNG(t, paths[2], uniform(color.RGBA{0xff, 0xff, 0xff, 0xff}, 16, 16))

	s, err := OpenImages(paths, 12.5, Options{Width: 4})
	require.NoError(t, err)
	defer s.Close()

	meta := s.Metadata()
	assert.Equal(t, 3, meta.Frames)
	assert.Equal(t, 4, meta.Width)
	assert.Equal(t, 2, meta.Height)
	assert.Equal(t, 12.5, meta.FPS)

	expected := []uint16{0xf800, 0x001f, 0xffff}
	for _, c := range expected {
		pix, err := s.NextFrame()
		require.NoError(t, err)
		require.Len(t, pix, 4*2*3)
		for _, got := range pack(pix) {
			assert.Equal(t, c, got)
		}
	}

	_, err = s.NextFrame()
	assert.Equal(t, io.EOF, err)
}

func TestImagesErrors(t *testing.T) {
	_, err := OpenImages(nil, 10, Options{})
	assert.ErrorIs(t, err, errNoImages)

	dir := t.TempDir()
	_, err = OpenImages([]string{filepath.Join(dir, "missing.png")}, 10, Options{})
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o644))
	_, err = OpenImages([]string{bad}, 10, Options{})
	assert.Error(t, err)

	good := filepath.Join(dir, "good.png")
	writePNG(t, good, uniform(color.Black, 2, 2))
	s, err := OpenImages([]string{good, bad}, 10, Options{})
	require.NoError(t, err)

	_, err = s.NextFrame()
	require.NoError(t, err)
	_, err = s.NextFrame()
	assert.Error(t, err)
}

func TestOpenVideoMissing(t *testing.T) {
	_, err := OpenVideo(filepath.Join(t.TempDir(), "missing.mp4"), Options{})
	assert.Error(t, err)
}

package source

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"os"

	"github.com/bodgit/vid"
)

var errNoImages = errors.New("source: no images")

// Images reads each still image in turn as one frame. Every frame is scaled
// to the size chosen for the first image.
type Images struct {
	paths []string
	next  int
	opts  Options
	meta  vid.Metadata
}

func decodeConfig(path string) (image.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, err
	}
	defer f.Close()

	c, _, err := image.DecodeConfig(f)
	if err != nil {
		return image.Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// OpenImages returns a source producing one frame per image in paths, played
// back at fps.
func OpenImages(paths []string, fps float64, opts Options) (*Images, error) {
	if len(paths) == 0 {
		return nil, errNoImages
	}

	c, err := decodeConfig(paths[0])
	if err != nil {
		return nil, err
	}
	width, height := opts.size(c.Width, c.Height)

	return &Images{
		paths: paths,
		opts:  opts,
		meta: vid.Metadata{
			Frames: len(paths),
			Width:  width,
			Height: height,
			FPS:    fps,
		},
	}, nil
}

// Metadata returns the frame count, frame rate and the scaled dimensions.
func (s *Images) Metadata() vid.Metadata {
	return s.meta
}

// NextFrame implements vid.FrameSource.
func (s *Images) NextFrame() ([]byte, error) {
	if s.next >= len(s.paths) {
		return nil, io.EOF
	}

	m, err := decode(s.paths[s.next])
	if err != nil {
		return nil, err
	}
	s.next++

	return s.opts.prepare(m, s.meta.Width, s.meta.Height), nil
}

func (s *Images) Close() error {
	return nil
}

package source

import (
	"image"
	"io"

	vidio "github.com/AlexEidt/Vidio"
	"github.com/bodgit/vid"
)

// Video reads frames from a video file using ffmpeg, which must be
// installed.
type Video struct {
	video *vidio.Video
	frame *image.RGBA
	opts  Options
	meta  vid.Metadata
}

// OpenVideo opens the video file at path.
func OpenVideo(path string, opts Options) (*Video, error) {
	video, err := vidio.NewVideo(path)
	if err != nil {
		return nil, err
	}

	frame := image.NewRGBA(image.Rect(0, 0, video.Width(), video.Height()))
	video.SetFrameBuffer(frame.Pix)

	width, height := opts.size(video.Width(), video.Height())

	return &Video{
		video: video,
		frame: frame,
		opts:  opts,
		meta: vid.Metadata{
			Frames: video.Frames(),
			Width:  width,
			Height: height,
			FPS:    video.FPS(),
		},
	}, nil
}

// Metadata returns the frame count, frame rate and the scaled dimensions.
func (v *Video) Metadata() vid.Metadata {
	return v.meta
}

// NextFrame implements vid.FrameSource.
func (v *Video) NextFrame() ([]byte, error) {
	if !v.video.Read() {
		return nil, io.EOF
	}
	return v.opts.prepare(v.frame, v.meta.Width, v.meta.Height), nil
}

func (v *Video) Close() error {
	v.video.Close()
	return nil
}

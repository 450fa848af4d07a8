/*
Package vid is a library for converting a sequence of RGB frames into a VID0
container for playback on small embedded displays.

Each frame is quantized to RGB565, compressed with run-length encoding and
placed in the container with an index allowing random access to any frame.
Frames are encoded concurrently but always written in order.
*/
package vid

import "log"

type Converter struct {
	logger *log.Logger
}

func New(logger *log.Logger) *Converter {
	return &Converter{
		logger: logger,
	}
}

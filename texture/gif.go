package texture

import (
	"image"
	"image/gif"
	"io"

	"github.com/ericpauley/go-quantize/quantize"
)

// WriteGIF writes m to w as a GIF using a median cut palette.
func WriteGIF(w io.Writer, m image.Image) error {
	return gif.Encode(w, m, &gif.Options{
		NumColors: 256,
		Quantizer: quantize.MedianCutQuantizer{},
	})
}

package standardize

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jpegSegment(marker byte, payload []byte) []byte {
	seg := []byte{0xFF, marker, 0, 0}
	binary.BigEndian.PutUint16(seg[2:], uint16(len(payload)+2))
	return append(seg, payload...)
}

// spliceAfterSOI inserts segments right after the JPEG start-of-image marker
func spliceAfterSOI(jpg []byte, segments ...[]byte) []byte {
	out := append([]byte{}, jpg[:2]...)
	for _, s := range segments {
		out = append(out, s...)
	}
	return append(out, jpg[2:]...)
}

func pngChunk(kind string, data []byte) []byte {
	chunk := make([]byte, 8, 12+len(data))
	binary.BigEndian.PutUint32(chunk, uint32(len(data)))
	copy(chunk[4:], kind)
	chunk = append(chunk, data...)
	crc := crc32.ChecksumIEEE(chunk[4:])
	return binary.BigEndian.AppendUint32(chunk, crc)
}

// insertBeforeIEND adds chunks in front of the trailing 12-byte IEND chunk
func insertBeforeIEND(pngData []byte, chunks ...[]byte) []byte {
	cut := len(pngData) - 12
	out := append([]byte{}, pngData[:cut]...)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return append(out, pngData[cut:]...)
}

func TestJPEGBlocksIsolated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, uniformImage(16, 16, color.RGBA{90, 90, 90, 255}), nil))

	exifPayload := append([]byte("Exif\x00\x00"), []byte("II*\x00fake-tiff")...)
	iccPart := func(seq byte, data string) []byte {
		p := append([]byte("ICC_PROFILE\x00"), seq, 2)
		return append(p, data...)
	}
	data := spliceAfterSOI(buf.Bytes(),
		jpegSegment(markerAPP2, iccPart(2, "-second")),
		jpegSegment(markerAPP1, exifPayload),
		jpegSegment(markerAPP2, iccPart(1, "first")),
	)

	img, err := Standardize(context.Background(), data, Options{})
	require.NoError(t, err)
	assert.Equal(t, "jpeg", img.Metadata.Format)
	assert.Equal(t, exifPayload, img.Metadata.EXIF)
	assert.Equal(t, []byte("first-second"), img.Metadata.ICC)
}

func TestJPEGBlocksMalformedYieldsNothing(t *testing.T) {
	truncated := []byte{0xFF, markerSOI, 0xFF, markerAPP1, 0x10, 0x00, 'E', 'x'}
	exif, icc := jpegBlocks(truncated)
	assert.Nil(t, exif)
	assert.Nil(t, icc)

	exif, icc = jpegBlocks([]byte("not a jpeg"))
	assert.Nil(t, exif)
	assert.Nil(t, icc)
}

func TestPNGBlocksIsolated(t *testing.T) {
	base := encodePNG(t, uniformImage(8, 8, color.RGBA{1, 2, 3, 255}))
	tiff := []byte("MM\x00*tiff-body")
	data := insertBeforeIEND(base, pngChunk("eXIf", tiff), pngChunk("iCCP", []byte("sRGB\x00\x00zz")))

	img, err := Standardize(context.Background(), data, Options{})
	require.NoError(t, err)
	assert.Equal(t, tiff, img.Metadata.EXIF)
	assert.Equal(t, []byte("sRGB\x00\x00zz"), img.Metadata.ICC)
}

func TestPNGBlocksMalformedYieldsNothing(t *testing.T) {
	data := append([]byte{}, pngSignature...)
	data = append(data, 0x7F, 0xFF, 0xFF, 0xFF, 'e', 'X', 'I', 'f')
	exif, icc := pngBlocks(data)
	assert.Nil(t, exif)
	assert.Nil(t, icc)
}

func TestWebPBlocks(t *testing.T) {
	chunk := func(kind string, data []byte) []byte {
		c := make([]byte, 8)
		copy(c, kind)
		binary.LittleEndian.PutUint32(c[4:], uint32(len(data)))
		c = append(c, data...)
		if len(data)%2 == 1 {
			c = append(c, 0)
		}
		return c
	}
	body := []byte("WEBP")
	body = append(body, chunk("VP8X", make([]byte, 10))...)
	body = append(body, chunk("ICCP", []byte("icc"))...)
	body = append(body, chunk("EXIF", []byte("II*\x00x"))...)
	data := append([]byte("RIFF"), binary.LittleEndian.AppendUint32(nil, uint32(len(body)))...)
	data = append(data, body...)

	exif, icc := webpBlocks(data)
	assert.Equal(t, []byte("II*\x00x"), exif)
	assert.Equal(t, []byte("icc"), icc)

	exif, icc = webpBlocks([]byte("RIFF\x00\x00\x00\x00WAVE"))
	assert.Nil(t, exif)
	assert.Nil(t, icc)
}

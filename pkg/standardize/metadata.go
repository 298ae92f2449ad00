package standardize

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"slices"
)

// JPEG marker constants
const (
	markerSOI  = 0xD8
	markerEOI  = 0xD9
	markerSOS  = 0xDA
	markerAPP1 = 0xE1
	markerAPP2 = 0xE2
	markerTEM  = 0x01
	markerRST0 = 0xD0
	markerRST7 = 0xD7
)

var (
	exifHeader   = []byte("Exif\x00\x00")
	iccHeader    = []byte("ICC_PROFILE\x00")
	pngSignature = []byte("\x89PNG\r\n\x1a\n")
)

// isolateMetadata pulls the raw EXIF and ICC blocks out of the container. Malformed
// containers yield no blocks.
func isolateMetadata(format string, data []byte) Metadata {
	md := Metadata{Format: format}
	switch format {
	case "jpeg":
		md.EXIF, md.ICC = jpegBlocks(data)
	case "png":
		md.EXIF, md.ICC = pngBlocks(data)
	case "webp":
		md.EXIF, md.ICC = webpBlocks(data)
	}
	md.EXIF = bytes.Clone(md.EXIF)
	md.ICC = bytes.Clone(md.ICC)
	return md
}

// jpegBlocks walks the marker segments that precede the first scan
func jpegBlocks(data []byte) (exif, icc []byte) {
	reader := bufio.NewReader(bytes.NewReader(data))

	var soi [2]byte
	if _, err := io.ReadFull(reader, soi[:]); err != nil || soi[0] != 0xFF || soi[1] != markerSOI {
		return nil, nil
	}

	type iccChunk struct {
		seq  byte
		data []byte
	}
	var chunks []iccChunk

	for {
		b, err := reader.ReadByte()
		if err != nil {
			break
		}
		if b != 0xFF {
			return nil, nil
		}

		marker, err := reader.ReadByte()
		if err != nil {
			return nil, nil
		}
		// Fill bytes
		for marker == 0xFF {
			if marker, err = reader.ReadByte(); err != nil {
				return nil, nil
			}
		}

		if marker == markerSOS || marker == markerEOI {
			break
		}
		if marker == markerTEM || (marker >= markerRST0 && marker <= markerRST7) {
			continue
		}

		var lengthBytes [2]byte
		if _, err := io.ReadFull(reader, lengthBytes[:]); err != nil {
			return nil, nil
		}
		length := int(binary.BigEndian.Uint16(lengthBytes[:]))
		if length < 2 {
			return nil, nil
		}
		payload := make([]byte, length-2)
		if _, err := io.ReadFull(reader, payload); err != nil {
			return nil, nil
		}

		switch marker {
		case markerAPP1:
			if exif == nil && bytes.HasPrefix(payload, exifHeader) {
				exif = payload
			}
		case markerAPP2:
			// ICC_PROFILE\0, sequence number, chunk count, profile bytes
			if bytes.HasPrefix(payload, iccHeader) && len(payload) >= len(iccHeader)+2 {
				chunks = append(chunks, iccChunk{seq: payload[len(iccHeader)], data: payload[len(iccHeader)+2:]})
			}
		}
	}

	if len(chunks) > 0 {
		slices.SortStableFunc(chunks, func(a, b iccChunk) int { return int(a.seq) - int(b.seq) })
		for _, c := range chunks {
			icc = append(icc, c.data...)
		}
	}
	return exif, icc
}

// pngBlocks reads the eXIf and iCCP chunks
func pngBlocks(data []byte) (exif, icc []byte) {
	if !bytes.HasPrefix(data, pngSignature) {
		return nil, nil
	}
	pos := len(pngSignature)
	for pos+8 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[pos:]))
		kind := string(data[pos+4 : pos+8])
		start := pos + 8
		end := start + length
		if length < 0 || end+4 > len(data) {
			return nil, nil
		}
		switch kind {
		case "eXIf":
			exif = data[start:end]
		case "iCCP":
			icc = data[start:end]
		case "IEND":
			return exif, icc
		}
		pos = end + 4 // CRC
	}
	return exif, icc
}

// webpBlocks reads the EXIF and ICCP chunks of a RIFF container
func webpBlocks(data []byte) (exif, icc []byte) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WEBP" {
		return nil, nil
	}
	pos := 12
	for pos+8 <= len(data) {
		kind := string(data[pos : pos+4])
		length := int(binary.LittleEndian.Uint32(data[pos+4:]))
		start := pos + 8
		end := start + length
		if length < 0 || end > len(data) {
			return nil, nil
		}
		switch kind {
		case "EXIF":
			exif = data[start:end]
		case "ICCP":
			icc = data[start:end]
		}
		pos = end + length&1
	}
	return exif, icc
}

package metadata

import (
	"encoding/binary"
	"sort"
)

// tiffEntry is one IFD entry of a hand-built little-endian TIFF body
type tiffEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

func asciiEntry(tag uint16, s string) tiffEntry {
	d := append([]byte(s), 0)
	return tiffEntry{tag: tag, typ: 2, count: uint32(len(d)), data: d}
}

func shortEntry(tag, v uint16) tiffEntry {
	return tiffEntry{tag: tag, typ: 3, count: 1, data: binary.LittleEndian.AppendUint16(nil, v)}
}

func rationalEntry(tag uint16, num, den uint32) tiffEntry {
	d := binary.LittleEndian.AppendUint32(nil, num)
	return tiffEntry{tag: tag, typ: 5, count: 1, data: binary.LittleEndian.AppendUint32(d, den)}
}

// EXIF tag ids used by the tests
const (
	tagMake            = 0x010F
	tagModel           = 0x0110
	tagSoftware        = 0x0131
	tagDateTime        = 0x0132
	tagExifPointer     = 0x8769
	tagExposureTime    = 0x829A
	tagFNumber         = 0x829D
	tagExposureProgram = 0x8822
	tagISO             = 0x8827
	tagDateTimeOrig    = 0x9003
	tagFocalLength     = 0x920A
	tagWhiteBalance    = 0xA403
)

// buildTIFF lays out IFD0, an optional Exif sub-IFD and the out-of-line values
func buildTIFF(ifd0, sub []tiffEntry) []byte {
	ifd0 = append([]tiffEntry{}, ifd0...)
	ifd0Size := 2 + 12*len(ifd0) + 4
	if len(sub) > 0 {
		ifd0Size += 12
	}
	subOff := 8 + ifd0Size
	if len(sub) > 0 {
		ifd0 = append(ifd0, tiffEntry{tag: tagExifPointer, typ: 4, count: 1,
			data: binary.LittleEndian.AppendUint32(nil, uint32(subOff))})
	}
	subSize := 0
	if len(sub) > 0 {
		subSize = 2 + 12*len(sub) + 4
	}
	dataOff := subOff + subSize

	var data []byte
	writeIFD := func(entries []tiffEntry) []byte {
		sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })
		b := binary.LittleEndian.AppendUint16(nil, uint16(len(entries)))
		for _, e := range entries {
			b = binary.LittleEndian.AppendUint16(b, e.tag)
			b = binary.LittleEndian.AppendUint16(b, e.typ)
			b = binary.LittleEndian.AppendUint32(b, e.count)
			if len(e.data) <= 4 {
				inline := make([]byte, 4)
				copy(inline, e.data)
				b = append(b, inline...)
				continue
			}
			b = binary.LittleEndian.AppendUint32(b, uint32(dataOff+len(data)))
			data = append(data, e.data...)
			if len(data)%2 == 1 {
				data = append(data, 0)
			}
		}
		return binary.LittleEndian.AppendUint32(b, 0)
	}

	out := []byte("II*\x00")
	out = binary.LittleEndian.AppendUint32(out, 8)
	out = append(out, writeIFD(ifd0)...)
	if len(sub) > 0 {
		out = append(out, writeIFD(sub)...)
	}
	return append(out, data...)
}

// captureEntries returns the first n capture-detail tags
func captureEntries(n int) []tiffEntry {
	all := []tiffEntry{
		rationalEntry(tagFNumber, 28, 10),
		rationalEntry(tagExposureTime, 1, 250),
		shortEntry(tagISO, 200),
		rationalEntry(tagFocalLength, 50, 1),
		shortEntry(tagExposureProgram, 2),
		shortEntry(tagWhiteBalance, 0),
	}
	return all[:n]
}

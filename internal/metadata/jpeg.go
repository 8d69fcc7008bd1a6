package metadata

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

var (
	jpegExifHeader = []byte("Exif\x00\x00")
	jpegXmpHeader  = []byte("http://ns.adobe.com/xap/1.0/\x00")
	jpegPhotoshop  = []byte("Photoshop 3.0\x00")
)

const maxSegmentPayload = 0xffff - 2

type jpegSegment struct {
	marker  byte
	payload []byte
}

// walkJPEG calls fn for every marker segment before the scan data and returns
// the offset of the SOS marker.
func walkJPEG(data []byte, fn func(seg jpegSegment)) (int, error) {
	br := bufio.NewReader(bytes.NewReader(data))
	pos := 0

	soi := make([]byte, 2)
	if _, err := io.ReadFull(br, soi); err != nil {
		return 0, err
	}
	if soi[0] != 0xff || soi[1] != 0xd8 {
		return 0, fmt.Errorf("invalid JPEG SOI")
	}
	pos += 2

	for {
		markerPrefix, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		pos++
		for markerPrefix != 0xff {
			if markerPrefix, err = br.ReadByte(); err != nil {
				return 0, err
			}
			pos++
		}
		start := pos - 1

		marker, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		pos++
		for marker == 0xff {
			if marker, err = br.ReadByte(); err != nil {
				return 0, err
			}
			pos++
			start = pos - 2
		}

		if marker == 0xda || marker == 0xd9 { // SOS, EOI
			return start, nil
		}
		if marker == 0x01 || (marker >= 0xd0 && marker <= 0xd7) {
			fn(jpegSegment{marker: marker})
			continue
		}

		lenBuf := make([]byte, 2)
		if _, err := io.ReadFull(br, lenBuf); err != nil {
			return 0, err
		}
		pos += 2
		segLen := int(binary.BigEndian.Uint16(lenBuf))
		if segLen < 2 {
			return 0, fmt.Errorf("invalid JPEG segment length")
		}
		payload := make([]byte, segLen-2)
		if _, err := io.ReadFull(br, payload); err != nil {
			return 0, err
		}
		pos += len(payload)
		fn(jpegSegment{marker: marker, payload: payload})
	}
}

func extractJPEG(data []byte) (Profiles, error) {
	var p Profiles
	_, err := walkJPEG(data, func(seg jpegSegment) {
		switch {
		case seg.marker == 0xe1 && hasPrefix(seg.payload, jpegExifHeader) && p.Exif == nil:
			p.Exif = clone(seg.payload[len(jpegExifHeader):])
		case seg.marker == 0xe1 && hasPrefix(seg.payload, jpegXmpHeader) && p.XMP == nil:
			p.XMP = clone(seg.payload[len(jpegXmpHeader):])
		case seg.marker == 0xed && hasPrefix(seg.payload, jpegPhotoshop) && p.IPTC == nil:
			p.IPTC = clone(seg.payload[len(jpegPhotoshop):])
		}
	})
	return p, err
}

// embedJPEG drops existing EXIF/XMP/Photoshop segments and writes p right
// after SOI and a leading JFIF APP0.
func embedJPEG(data []byte, p Profiles) ([]byte, error) {
	var kept []jpegSegment
	sos, err := walkJPEG(data, func(seg jpegSegment) {
		if shouldDropJPEGSegment(seg.marker, seg.payload) {
			return
		}
		kept = append(kept, seg)
	})
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	out.Grow(len(data) + len(p.Exif) + len(p.XMP) + len(p.IPTC) + 64)
	out.Write([]byte{0xff, 0xd8})

	i := 0
	if len(kept) > 0 && kept[0].marker == 0xe0 {
		writeJPEGSegment(&out, kept[0])
		i = 1
	}
	for _, seg := range profileSegments(p) {
		writeJPEGSegment(&out, seg)
	}
	for ; i < len(kept); i++ {
		writeJPEGSegment(&out, kept[i])
	}

	out.Write(data[sos:])
	return out.Bytes(), nil
}

func profileSegments(p Profiles) []jpegSegment {
	var segs []jpegSegment
	add := func(marker byte, header, body []byte) {
		if len(body) == 0 || len(header)+len(body) > maxSegmentPayload {
			return
		}
		payload := make([]byte, 0, len(header)+len(body))
		payload = append(payload, header...)
		payload = append(payload, body...)
		segs = append(segs, jpegSegment{marker: marker, payload: payload})
	}
	add(0xe1, jpegExifHeader, p.Exif)
	add(0xe1, jpegXmpHeader, p.XMP)
	add(0xed, jpegPhotoshop, p.IPTC)
	return segs
}

func writeJPEGSegment(w *bytes.Buffer, seg jpegSegment) {
	w.Write([]byte{0xff, seg.marker})
	if seg.marker == 0x01 || (seg.marker >= 0xd0 && seg.marker <= 0xd7) {
		return
	}
	_ = binary.Write(w, binary.BigEndian, uint16(len(seg.payload)+2))
	w.Write(seg.payload)
}

func shouldDropJPEGSegment(marker byte, payload []byte) bool {
	switch marker {
	case 0xe1:
		return hasPrefix(payload, jpegExifHeader) || hasPrefix(payload, jpegXmpHeader)
	case 0xed:
		return hasPrefix(payload, jpegPhotoshop)
	}
	return false
}

func hasPrefix(buf, prefix []byte) bool {
	return len(buf) >= len(prefix) && bytes.Equal(buf[:len(prefix)], prefix)
}

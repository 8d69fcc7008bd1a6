package metadata

import (
	"bytes"
	"errors"

	"squeeze/pkg/imgutil"
)

func extractWebP(data []byte) (Profiles, error) {
	var p Profiles
	chunks, err := imgutil.ReadWebPChunks(data)
	if err != nil {
		return p, err
	}
	for _, c := range chunks {
		switch c.FourCC {
		case "EXIF":
			if p.Exif == nil {
				p.Exif = clone(bytes.TrimPrefix(c.Data, jpegExifHeader))
			}
		case "XMP ":
			if p.XMP == nil {
				p.XMP = clone(c.Data)
			}
		}
	}
	return p, nil
}

// embedWebP rewrites the container as extended (VP8X) when there is anything
// to carry, and appends EXIF and XMP chunks after the image data.
func embedWebP(data []byte, p Profiles) ([]byte, error) {
	chunks, err := imgutil.ReadWebPChunks(data)
	if err != nil {
		return nil, err
	}

	kept := chunks[:0:0]
	for _, c := range chunks {
		if c.FourCC == "EXIF" || c.FourCC == "XMP " {
			continue
		}
		kept = append(kept, c)
	}
	if len(kept) == 0 {
		return nil, errors.New("webp has no image data")
	}

	hasExif, hasXMP := len(p.Exif) > 0, len(p.XMP) > 0

	if kept[0].FourCC != "VP8X" {
		if !hasExif && !hasXMP {
			return imgutil.WriteWebP(kept), nil
		}
		w, h, alpha, err := imgutil.BitstreamSize(kept[0])
		if err != nil {
			return nil, err
		}
		var flags byte
		if alpha {
			flags |= imgutil.VP8XFlagAlpha
		}
		vp8x := imgutil.Chunk{FourCC: "VP8X", Data: imgutil.VP8XPayload(flags, w, h)}
		kept = append([]imgutil.Chunk{vp8x}, kept...)
	}

	header := append([]byte(nil), kept[0].Data...)
	if len(header) < 10 {
		return nil, errors.New("short VP8X chunk")
	}
	header[0] &^= imgutil.VP8XFlagEXIF | imgutil.VP8XFlagXMP
	if hasExif {
		header[0] |= imgutil.VP8XFlagEXIF
		kept = append(kept, imgutil.Chunk{FourCC: "EXIF", Data: p.Exif})
	}
	if hasXMP {
		header[0] |= imgutil.VP8XFlagXMP
		kept = append(kept, imgutil.Chunk{FourCC: "XMP ", Data: p.XMP})
	}
	kept[0] = imgutil.Chunk{FourCC: "VP8X", Data: header}

	return imgutil.WriteWebP(kept), nil
}

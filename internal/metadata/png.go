package metadata

import (
	"bytes"

	"squeeze/pkg/imgutil"
)

const pngXMPKeyword = "XML:com.adobe.xmp"

func extractPNG(data []byte) (Profiles, error) {
	var p Profiles
	chunks, err := imgutil.ReadPNGChunks(data)
	if err != nil {
		return p, err
	}
	for _, c := range chunks {
		switch c.FourCC {
		case "eXIf":
			if p.Exif == nil {
				p.Exif = clone(c.Data)
			}
		case "iTXt":
			if p.XMP == nil {
				p.XMP = pngXMPText(c.Data)
			}
		}
	}
	return p, nil
}

// pngXMPText returns the packet of an uncompressed XMP iTXt chunk.
func pngXMPText(data []byte) []byte {
	keyEnd := bytes.IndexByte(data, 0)
	if keyEnd <= 0 || string(data[:keyEnd]) != pngXMPKeyword {
		return nil
	}
	rest := data[keyEnd+1:]
	if len(rest) < 2 || rest[0] != 0 {
		return nil
	}
	rest = rest[2:]
	for i := 0; i < 2; i++ { // language tag, translated keyword
		idx := bytes.IndexByte(rest, 0)
		if idx < 0 {
			return nil
		}
		rest = rest[idx+1:]
	}
	return clone(rest)
}

// embedPNG removes existing EXIF/XMP and textual chunks and inserts p right
// after IHDR.
func embedPNG(data []byte, p Profiles) ([]byte, error) {
	chunks, err := imgutil.ReadPNGChunks(data)
	if err != nil {
		return nil, err
	}

	out := make([]imgutil.Chunk, 0, len(chunks)+2)
	for _, c := range chunks {
		if shouldDropPNGChunk(c.FourCC) {
			continue
		}
		out = append(out, c)
		if c.FourCC != "IHDR" {
			continue
		}
		if len(p.Exif) > 0 {
			out = append(out, imgutil.Chunk{FourCC: "eXIf", Data: p.Exif})
		}
		if len(p.XMP) > 0 {
			out = append(out, imgutil.Chunk{FourCC: "iTXt", Data: xmpITXt(p.XMP)})
		}
	}
	return imgutil.WritePNG(out), nil
}

func xmpITXt(packet []byte) []byte {
	body := make([]byte, 0, len(pngXMPKeyword)+5+len(packet))
	body = append(body, pngXMPKeyword...)
	body = append(body, 0, 0, 0, 0, 0)
	return append(body, packet...)
}

func shouldDropPNGChunk(chunkName string) bool {
	switch chunkName {
	case "tEXt", "zTXt", "iTXt", "eXIf", "tIME":
		return true
	default:
		return false
	}
}

// Package media recognises the product image formats the dashboard accepts.
package media

import (
	"bytes"
	"errors"
	"io"
)

var ErrUnsupported = errors.New("unsupported image format")

type Format struct {
	Name string
	MIME string
	Ext  string
}

var (
	JPEG = Format{Name: "jpeg", MIME: "image/jpeg", Ext: ".jpg"}
	PNG  = Format{Name: "png", MIME: "image/png", Ext: ".png"}
	GIF  = Format{Name: "gif", MIME: "image/gif", Ext: ".gif"}
	WEBP = Format{Name: "webp", MIME: "image/webp", Ext: ".webp"}
	AVIF = Format{Name: "avif", MIME: "image/avif", Ext: ".avif"}
)

const headSize = 512

// Detect reads up to 512 bytes from r and identifies the image format from
// its magic bytes. The bytes read are returned so the caller can replay them.
func Detect(r io.Reader) (Format, []byte, error) {
	head := make([]byte, headSize)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Format{}, nil, err
	}
	head = head[:n]

	f, err := DetectHead(head)
	return f, head, err
}

func DetectHead(head []byte) (Format, error) {
	switch {
	case isJPEG(head):
		return JPEG, nil
	case isPNG(head):
		return PNG, nil
	case isGIF(head):
		return GIF, nil
	case isWEBP(head):
		return WEBP, nil
	case isAVIF(head):
		return AVIF, nil
	}
	return Format{}, ErrUnsupported
}

func isJPEG(head []byte) bool {
	return len(head) > 3 && head[0] == 0xff && head[1] == 0xd8 && head[2] == 0xff
}

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func isPNG(head []byte) bool {
	return bytes.HasPrefix(head, pngMagic)
}

func isGIF(head []byte) bool {
	return bytes.HasPrefix(head, []byte("GIF87a")) || bytes.HasPrefix(head, []byte("GIF89a"))
}

func isWEBP(head []byte) bool {
	return len(head) >= 12 && bytes.Equal(head[:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WEBP"))
}

// isAVIF looks for an ISO-BMFF ftyp box naming an avif brand.
func isAVIF(head []byte) bool {
	if len(head) < 12 || string(head[4:8]) != "ftyp" {
		return false
	}
	return bytes.Contains(head[8:], []byte("avif")) || bytes.Contains(head[8:], []byte("avis"))
}

package media

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectHead(t *testing.T) {
	cases := []struct {
		name string
		head []byte
		want Format
	}{
		{"jpeg", []byte{0xff, 0xd8, 0xff, 0xe0, 0x00}, JPEG},
		{"png", append(append([]byte{}, pngMagic...), 0, 0, 0, 13), PNG},
		{"gif87", []byte("GIF87a...."), GIF},
		{"gif89", []byte("GIF89a...."), GIF},
		{"webp", []byte("RIFF\x10\x00\x00\x00WEBPVP8 "), WEBP},
		{"avif", []byte("\x00\x00\x00\x1cftypavif\x00\x00\x00\x00"), AVIF},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DetectHead(tc.head)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDetectHeadRejects(t *testing.T) {
	for _, head := range [][]byte{
		nil,
		[]byte("hello world"),
		[]byte(`<svg xmlns="http://www.w3.org/2000/svg"><script>alert(1)</script></svg>`),
		[]byte("RIFF\x10\x00\x00\x00WAVEfmt "),
		[]byte("\x00\x00\x00\x18ftypmp42\x00\x00\x00\x00"),
	} {
		_, err := DetectHead(head)
		assert.ErrorIs(t, err, ErrUnsupported, "%q", head)
	}
}

func TestDetectReturnsConsumedBytes(t *testing.T) {
	body := append([]byte("GIF89a"), bytes.Repeat([]byte{1}, 1000)...)
	r := bytes.NewReader(body)

	f, head, err := Detect(r)
	require.NoError(t, err)
	assert.Equal(t, GIF, f)
	assert.Len(t, head, 512)

	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, body, append(head, rest...))

	_, head, err = Detect(strings.NewReader("GIF89a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("GIF89a"), head)
}

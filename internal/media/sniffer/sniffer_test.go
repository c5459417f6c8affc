package sniffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectHead(t *testing.T) {
	cases := []struct {
		name string
		head []byte
		want ImageType
		mime string
	}{
		{"jpeg", []byte{0xff, 0xd8, 0xff, 0xe0}, TypeJPEG, "image/jpeg"},
		{"png", []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0}, TypePNG, "image/png"},
		{"gif", []byte("GIF89a trailing"), TypeGIF, "image/gif"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), TypeWEBP, "image/webp"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := DetectHead(tc.head)
			require.NoError(t, err)
			assert.Equal(t, tc.want, result.Type)
			assert.Equal(t, tc.mime, result.MIME)
			assert.Equal(t, string(tc.want), result.Ext())
		})
	}
}

func TestDetectHeadUnknown(t *testing.T) {
	_, err := DetectHead([]byte("plain text, not an image"))
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = DetectHead(nil)
	assert.ErrorIs(t, err, ErrUnknownType)
}

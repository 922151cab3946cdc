package frame

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	got := Encode([]byte("Hello world!"))
	assert.Equal(t, "12:Hello world!,", string(got))
}

func TestRoundTrip(t *testing.T) {
	payloads := [][]byte{
		[]byte(""),
		[]byte("Hello world!"),
		bytes.Repeat([]byte("x"), MaxPayload),
	}
	for _, p := range payloads {
		r := bufio.NewReader(bytes.NewReader(Encode(p)))
		got, err := ReadFrame(r)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestReadFrame_Truncated(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("5:Hello"))
	_, err := ReadFrame(r)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTruncated))
}

func TestReadFrame_MalformedTrailer(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("5:Hello."))
	_, err := ReadFrame(r)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestReadFrame_HeaderTooLong(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("123456789:" + strings.Repeat("a", 9) + ","))
	_, err := ReadFrame(r)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestReadFrame_TooLarge(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("10485761:")
	sb.WriteString(strings.Repeat("a", 10485761))
	sb.WriteString(",")
	r := bufio.NewReader(strings.NewReader(sb.String()))
	_, err := ReadFrame(r)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooLarge))
}

func TestReadFrame_NonDigitBeforeColon(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("12x:Hello world!,"))
	_, err := ReadFrame(r)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestReadFrame_EmptyHeader(t *testing.T) {
	r := bufio.NewReader(strings.NewReader(":Hello,"))
	_, err := ReadFrame(r)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformed))
}

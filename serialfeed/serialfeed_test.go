package serialfeed

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseFrame(t *testing.T) {
	ir, red, ok := parseFrame("123,456")
	require.True(t, ok)
	require.Equal(t, 123.0, ir)
	require.Equal(t, 456.0, red)

	ir, red, ok = parseFrame("007,042")
	require.True(t, ok)
	require.Equal(t, 7.0, ir)
	require.Equal(t, 42.0, red)
}

func TestParseFrameRejects(t *testing.T) {
	cases := []string{
		"",
		"123456",    // no separator
		"12,456",    // short IR field
		"123,4567",  // long frame
		"abc,456",   // non-numeric IR
		"123,def",   // non-numeric red
		"123,45\r",  // stray control byte
		"1,2",       // short frame
		"123,456,7", // too many fields
	}
	for _, frame := range cases {
		_, _, ok := parseFrame(frame)
		require.False(t, ok, "frame %q", frame)
	}
}

// fakePort records trigger writes and serves a canned byte stream.
type fakePort struct {
	in  *bytes.Reader
	out bytes.Buffer
}

func (f *fakePort) Read(p []byte) (int, error)  { return f.in.Read(p) }
func (f *fakePort) Write(p []byte) (int, error) { return f.out.Write(p) }

func fakeSource(stream string) (*Source, *fakePort) {
	port := &fakePort{in: bytes.NewReader([]byte(stream))}
	return &Source{rw: port, epoch: time.Now()}, port
}

func TestNextReadsFrame(t *testing.T) {
	s, port := fakeSource("$123,456\n")

	red, ir, millis, ok, err := s.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 456.0, red)
	require.Equal(t, 123.0, ir)
	require.GreaterOrEqual(t, millis, 0.0)

	// Each capture is newline-triggered.
	require.Equal(t, "\n", port.out.String())
}

func TestNextSkipsLeadingGarbage(t *testing.T) {
	s, _ := fakeSource("\r\nxx$123,456\n")

	red, ir, _, ok, err := s.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 456.0, red)
	require.Equal(t, 123.0, ir)
}

func TestNextGarbledFrameNotFatal(t *testing.T) {
	s, _ := fakeSource("$12,456\n$123,456\n")

	_, _, _, ok, err := s.Next()
	require.NoError(t, err)
	require.False(t, ok)

	red, ir, _, ok, err := s.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 456.0, red)
	require.Equal(t, 123.0, ir)
}

func TestNextEOF(t *testing.T) {
	s, _ := fakeSource("")

	_, _, _, ok, err := s.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

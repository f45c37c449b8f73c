package artifacts

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type decoder struct {
	name string
	enc  encoding.Encoding // nil for UTF-8
}

// decoders are tried in order; the first that accepts the input wins.
var decoders = []decoder{
	{name: "utf-8"},
	{name: "iso-8859-1", enc: charmap.ISO8859_1},
	{name: "windows-1252", enc: charmap.Windows1252},
}

// Decode converts raw artifact bytes to text. It reports the encoding used,
// or ok=false when the data looks binary or no decoder accepts it.
func Decode(b []byte) (text, encodingName string, ok bool) {
	if looksBinary(b) {
		return "", "", false
	}
	for _, d := range decoders {
		if d.enc == nil {
			s := bytes.TrimPrefix(b, utf8BOM)
			if utf8.Valid(s) {
				return string(s), d.name, true
			}
			continue
		}
		out, err := d.enc.NewDecoder().Bytes(b)
		if err != nil {
			continue
		}
		return string(out), d.name, true
	}
	return "", "", false
}

// looksBinary sniffs the head of b for NUL bytes.
func looksBinary(b []byte) bool {
	const sniff = 800
	n := len(b)
	if n > sniff {
		n = sniff
	}
	return bytes.IndexByte(b[:n], 0) >= 0
}

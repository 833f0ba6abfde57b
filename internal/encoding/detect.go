package encoding

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	textenc "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const sniffSize = 4096

// Charset names reported on Source.
const (
	CharsetUTF8        = "UTF-8"
	CharsetUTF16LE     = "UTF-16LE"
	CharsetUTF16BE     = "UTF-16BE"
	CharsetWindows1252 = "windows-1252"
	CharsetISO88599    = "ISO-8859-9"
)

var boms = []struct {
	prefix  []byte
	charset string
	decoder textenc.Encoding
}{
	{[]byte{0xEF, 0xBB, 0xBF}, CharsetUTF8, nil},
	{[]byte{0xFF, 0xFE}, CharsetUTF16LE, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)},
	{[]byte{0xFE, 0xFF}, CharsetUTF16BE, unicode.UTF16(unicode.BigEndian, unicode.UseBOM)},
}

// legacy maps chardet results onto the single-byte decoders price sheets
// exported from spreadsheet tools tend to use.
var legacy = map[string]textenc.Encoding{
	"ISO-8859-1":   charmap.Windows1252,
	"windows-1252": charmap.Windows1252,
	"ISO-8859-9":   charmap.ISO8859_9,
}

// Source is an input stream decoded to UTF-8.
type Source struct {
	io.Reader
	// Charset is the encoding the input was read as.
	Charset string
}

// NewUTF8Reader detects the encoding of r and returns a Source that yields
// UTF-8. A byte order mark wins; otherwise valid UTF-8 passes through, then
// chardet is consulted, and Windows-1252 is the fallback.
func NewUTF8Reader(r io.Reader) (*Source, error) {
	br := bufio.NewReaderSize(r, sniffSize)

	buf, err := br.Peek(sniffSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("peek: %w", err)
	}

	for _, bom := range boms {
		if !bytes.HasPrefix(buf, bom.prefix) {
			continue
		}

		if bom.decoder == nil {
			_, _ = br.Discard(len(bom.prefix))
			return &Source{Reader: br, Charset: bom.charset}, nil
		}

		return &Source{Reader: transform.NewReader(br, bom.decoder.NewDecoder()), Charset: bom.charset}, nil
	}

	if utf8.Valid(buf) {
		return &Source{Reader: br, Charset: CharsetUTF8}, nil
	}

	if result, err := chardet.NewTextDetector().DetectBest(buf); err == nil {
		if result.Charset == CharsetUTF8 {
			return &Source{Reader: br, Charset: CharsetUTF8}, nil
		}

		if dec, ok := legacy[result.Charset]; ok {
			name := CharsetWindows1252
			if dec == charmap.ISO8859_9 {
				name = CharsetISO88599
			}

			return &Source{Reader: transform.NewReader(br, dec.NewDecoder()), Charset: name}, nil
		}
	}

	return &Source{Reader: transform.NewReader(br, charmap.Windows1252.NewDecoder()), Charset: CharsetWindows1252}, nil
}

// SniffDelimiter picks the field separator of a CSV header line: semicolon,
// tab or comma, whichever occurs most. Comma wins ties.
func SniffDelimiter(header string) rune {
	best, count := ',', strings.Count(header, ",")

	for _, r := range []rune{';', '\t'} {
		if n := strings.Count(header, string(r)); n > count {
			best, count = r, n
		}
	}

	return best
}

package submission

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeText returns content as UTF-8.
// UTF-16 input is recognised by its byte order mark; other input that is not valid UTF-8
// is read as GBK, the encoding lab machines save files in.
func DecodeText(content []byte) []byte {
	if bytes.HasPrefix(content, utf8BOM) {
		return content[len(utf8BOM):]
	}
	if len(content) >= 2 && ((content[0] == 0xFF && content[1] == 0xFE) || (content[0] == 0xFE && content[1] == 0xFF)) {
		dec := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		if out, _, err := transform.Bytes(dec, content); err == nil {
			return out
		}
	}
	if utf8.Valid(content) {
		return content
	}
	out, _, err := transform.Bytes(simplifiedchinese.GBK.NewDecoder(), content)
	if err != nil {
		return bytes.ToValidUTF8(content, []byte("�"))
	}
	return out
}

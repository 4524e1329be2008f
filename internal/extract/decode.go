package extract

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"

	mderrors "github.com/Aman-CERP/mdsearch/internal/errors"
)

// Encoding names reported in Result.Encoding.
const (
	EncodingUTF8    = "utf-8"
	EncodingGB18030 = "gb18030"
	EncodingLatin1  = "iso-8859-1"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode converts raw file bytes to text.
//
// UTF-8 is tried first, then GB18030 (which covers GBK and GB2312), then
// ISO-8859-1, which accepts any byte sequence. Content containing NUL bytes
// is treated as binary and rejected.
func Decode(data []byte) (string, string, error) {
	if bytes.IndexByte(data, 0) >= 0 {
		return "", "", mderrors.ExtractionError("content contains NUL bytes", nil)
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), EncodingUTF8, nil
	}

	if out, err := simplifiedchinese.GB18030.NewDecoder().Bytes(data); err == nil {
		if !bytes.ContainsRune(out, utf8.RuneError) {
			return string(out), EncodingGB18030, nil
		}
	}

	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", "", mderrors.ExtractionError("failed to decode content", err)
	}
	return string(out), EncodingLatin1, nil
}

// normalizeNewlines converts CRLF and lone CR line endings to LF.
func normalizeNewlines(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

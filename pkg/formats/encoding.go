package formats

import (
	"fmt"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/sheetport/sheetport/pkg/errors"
)

// Decode converts text bytes from the named charset to UTF-8 before a
// text codec parses them. The name is an IANA/WHATWG label such as
// "latin1" or "windows-1252"; an empty name or any UTF-8 label returns
// the input unchanged.
func Decode(data []byte, charset string) ([]byte, error) {
	if charset == "" || charset == "utf-8" || charset == "utf8" {
		return data, nil
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, errors.NewConfigError("encoding",
			fmt.Sprintf("unknown charset %q", charset), err)
	}

	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return nil, errors.NewParseError(charset, "charset decode failed", err)
	}
	return out, nil
}

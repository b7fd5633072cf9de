package netclient

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

// HTMLUnmarshaler is implemented by payloads that extract themselves from a
// parsed HTML document.
type HTMLUnmarshaler interface {
	UnmarshalHTML(doc *goquery.Document) error
}

// HTMLDecoder parses bodies as HTML. Supported targets are
// **goquery.Document and HTMLUnmarshaler implementations.
type HTMLDecoder struct {
	// MaxBytes truncates the body before parsing when positive.
	MaxBytes int
}

func (d HTMLDecoder) Decode(data []byte, v any) error {
	if _, ok := v.(*Empty); ok {
		return nil
	}
	if d.MaxBytes > 0 && len(data) > d.MaxBytes {
		data = data[:d.MaxBytes]
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}

	switch target := v.(type) {
	case **goquery.Document:
		*target = doc
		return nil
	case HTMLUnmarshaler:
		if err := target.UnmarshalHTML(doc); err != nil {
			return err
		}
		return validate(v)
	default:
		return fmt.Errorf("html decoder cannot decode into %T", v)
	}
}

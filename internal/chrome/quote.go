package chrome

import (
	"bytes"
	"encoding/json"
)

// QuoteJS renders s as a double-quoted JavaScript string literal.
func QuoteJS(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(s)
	return string(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
}

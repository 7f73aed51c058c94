package jsontree

import (
	"bytes"
	"encoding/json"
)

// Encode serializes a tree back to compact JSON.
func Encode(n Node) []byte {
	var buf bytes.Buffer
	writeNode(&buf, n)
	return buf.Bytes()
}

// EncodeString is Encode returning a string.
func EncodeString(n Node) string {
	return string(Encode(n))
}

func writeNode(buf *bytes.Buffer, n Node) {
	switch v := n.(type) {
	case *Object:
		if v == nil {
			buf.WriteString("null")
			return
		}
		buf.WriteByte('{')
		for i, m := range v.Members {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, m.Name)
			buf.WriteByte(':')
			writeNode(buf, m.Value)
		}
		buf.WriteByte('}')
	case *Array:
		if v == nil {
			buf.WriteString("null")
			return
		}
		buf.WriteByte('[')
		for i, e := range v.Elements {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeNode(buf, e)
		}
		buf.WriteByte(']')
	case String:
		writeString(buf, string(v))
	case Other:
		if v.Raw == "" {
			buf.WriteString("null")
			return
		}
		buf.WriteString(v.Raw)
	default:
		buf.WriteString("null")
	}
}

// writeString writes s as a JSON string without HTML escaping.
func writeString(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(s)
	// Encoder terminates every value with a newline.
	buf.Truncate(buf.Len() - 1)
}

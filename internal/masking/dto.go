package masking

import (
	"encoding/json"
	"fmt"

	"github.com/sipico/payload-masker/internal/jsontree"
)

// MaskStruct renders v as JSON with the fields declared in its mask struct tags
// masked. Rules of the root type apply at every depth of the document, matching
// how field names are resolved for configured rules.
func MaskStruct(v any, defaultChar rune) (string, error) {
	if v == nil {
		return "null", nil
	}

	table, err := TableFor(v)
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal value: %w", err)
	}
	tree, err := jsontree.Parse(data)
	if err != nil {
		return "", fmt.Errorf("failed to parse marshalled value: %w", err)
	}

	return jsontree.EncodeString(MaskTree(tree, table, defaultChar)), nil
}

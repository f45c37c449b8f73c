package report

import (
	"encoding/json"
	"io"

	"github.com/redactyl/alertlens/internal/types"
)

// WriteJSON writes findings as an indented JSON array. A nil slice is
// written as [].
func WriteJSON(w io.Writer, findings []types.Finding) error {
	if findings == nil {
		findings = []types.Finding{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(findings)
}

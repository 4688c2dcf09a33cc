package formatter

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/gnolang/asymptote/internal/types"
)

// WriteJSON writes results as an indented JSON array.
func WriteJSON(w io.Writer, results []*types.AnalysisResult) error {
	if results == nil {
		results = []*types.AnalysisResult{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("error encoding results: %w", err)
	}
	return nil
}

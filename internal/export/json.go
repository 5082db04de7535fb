package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ginjaninja78/meteragg/internal/engine"
)

// WriteJSON writes the whole result, views, file reports and warnings
// included.
func WriteJSON(w io.Writer, result *engine.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}

package config

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"

	"tools.zach/dev/captioner/internal/migrate"
)

func init() {
	migrate.Config.Register(migrate.Migration{
		Version:     2,
		Description: "split [render] into [fit], [layout], and [font]",
		Upgrade:     splitRenderTable,
	})
}

// renderMoves maps v1 [render] keys to their v2 section and key.
var renderMoves = map[string][2]string{
	"start_size": {"fit", "min_start_size"},
	"margin":     {"layout", "min_margin"},
	"font_path":  {"font", "path"},
}

// splitRenderTable moves the v1 [render] keys into their v2 tables. Keys
// already present in a v2 table win over the [render] value. Unknown
// [render] keys are dropped.
func splitRenderTable(data []byte) ([]byte, error) {
	doc := map[string]any{}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse v1 config: %w", err)
	}

	if render, ok := doc["render"].(map[string]any); ok {
		for oldKey, dest := range renderMoves {
			v, ok := render[oldKey]
			if !ok {
				continue
			}
			table, ok := doc[dest[0]].(map[string]any)
			if !ok {
				table = map[string]any{}
				doc[dest[0]] = table
			}
			if _, exists := table[dest[1]]; !exists {
				table[dest[1]] = v
			}
		}
		delete(doc, "render")
	}
	doc["version"] = 2

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return nil, fmt.Errorf("encode v2 config: %w", err)
	}
	return buf.Bytes(), nil
}

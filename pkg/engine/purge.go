package engine

import (
	"context"
	"strings"

	"github.com/harun/ingat/pkg/store"
)

// detectDuplicates searches the target category using the new entry's own
// topic and flags any other entry whose score clears a fraction of the top
// observed score. The threshold is relative because score magnitude varies
// by ranking mode (pure lexical, pure semantic, hybrid).
func (e *Engine) detectDuplicates(ctx context.Context, category store.Category, filename string) ([]DuplicateWarning, error) {
	topic := store.TitleFromFilename(filename)
	if topic == "" {
		return nil, nil
	}

	results, err := e.index.Search(ctx, topic, category, 10)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	top := results[0].Score
	if top <= 0 {
		return nil, nil
	}
	cutoff := top * e.purgeThreshold

	var warnings []DuplicateWarning
	for _, r := range results {
		if r.Filename == filename && r.Category == category {
			continue
		}
		if r.Score < cutoff {
			continue
		}
		warnings = append(warnings, DuplicateWarning{
			Category: r.Category,
			Filename: r.Filename,
			Title:    r.Title,
			Score:    r.Score,
		})
	}

	if len(warnings) > 0 {
		names := make([]string, 0, len(warnings))
		for _, w := range warnings {
			names = append(names, w.Filename)
		}
		e.logger.Debug().
			Str("entry", filename).
			Str("likely_duplicates", strings.Join(names, ",")).
			Msg("Write may supersede existing entries")
	}
	return warnings, nil
}

package mailmerge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// ValidateMapping checks that every placeholder has a column assigned.
// The error lists the unassigned placeholders in sorted order.
func ValidateMapping(placeholders []string, mapping Mapping) error {
	var missing []string
	seen := make(map[string]bool, len(placeholders))
	for _, p := range placeholders {
		if seen[p] {
			continue
		}
		seen[p] = true
		if mapping[p] == "" {
			missing = append(missing, p)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return &Error{Kind: KindIncompleteMapping, Placeholders: missing}
}

// RenderAll renders one document per row, in row order. With more than one worker the
// rows are rendered concurrently; the result order is still the row order.
// The first failing row aborts the batch.
func (e *Engine) RenderAll(ctx context.Context, tmpl *Template, rows []Row, mapping Mapping) ([]*Archive, error) {
	cfg := e.cfg()
	opts := renderOptionsFromConfig(cfg)
	logger := e.log()
	out := make([]*Archive, len(rows))

	renderOne := func(i int) error {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("render cancelled before row %d: %w", i+1, err)
		}
		doc, err := renderRow(tmpl.archive, SubstitutionTable(mapping, rows[i]), opts)
		if err != nil {
			var me *Error
			if errors.As(err, &me) {
				me.Row = i + 1
				return me
			}
			return &Error{Kind: KindRenderError, Row: i + 1, Cause: err}
		}
		out[i] = doc
		logger.Debug("rendered row", "row", i+1, "of", len(rows))
		return nil
	}

	if cfg.Workers <= 1 || len(rows) <= 1 {
		for i := range rows {
			if err := renderOne(i); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i := range rows {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil && ctx.Err() == nil {
				// another row already failed
				return nil
			}
			return renderOne(i)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("render cancelled: %w", err)
	}
	return out, nil
}

// prepareForMerge opens the template and checks that the mapping covers it
func (e *Engine) prepareForMerge(template []byte, mapping Mapping) (*Template, error) {
	tmpl, err := e.Prepare(template)
	if err != nil {
		return nil, err
	}
	if len(tmpl.placeholders) == 0 {
		return nil, &Error{Kind: KindNoPlaceholdersFound, Op: "scan"}
	}
	if err := ValidateMapping(tmpl.placeholders, mapping); err != nil {
		return nil, err
	}
	return tmpl, nil
}

// GenerateMerged renders every row and concatenates the results into one document,
// separated by page breaks
func (e *Engine) GenerateMerged(ctx context.Context, template []byte, rows []Row, mapping Mapping) ([]byte, error) {
	start := time.Now()
	tmpl, err := e.prepareForMerge(template, mapping)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &Error{Kind: KindEmptyInput, Op: "merge"}
	}

	docs, err := e.RenderAll(ctx, tmpl, rows, mapping)
	if err != nil {
		return nil, err
	}

	merged, err := concatenate(docs, e.log())
	if err != nil {
		return nil, err
	}

	data, err := merged.Serialize()
	if err != nil {
		return nil, &Error{Kind: KindMergeError, Op: "serialize", Cause: err}
	}

	e.log().Info("merged document generated",
		"rows", len(rows),
		"placeholders", len(tmpl.placeholders),
		"bytes", len(data),
		"duration", time.Since(start))
	return data, nil
}

// GenerateSeparate renders one document per row and returns their bytes in row order
func (e *Engine) GenerateSeparate(ctx context.Context, template []byte, rows []Row, mapping Mapping) ([][]byte, error) {
	tmpl, err := e.prepareForMerge(template, mapping)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &Error{Kind: KindEmptyInput, Op: "render"}
	}

	docs, err := e.RenderAll(ctx, tmpl, rows, mapping)
	if err != nil {
		return nil, err
	}

	out := make([][]byte, len(docs))
	for i, doc := range docs {
		data, err := doc.Serialize()
		if err != nil {
			return nil, &Error{Kind: KindRenderError, Op: "serialize", Row: i + 1, Cause: err}
		}
		out[i] = data
	}

	e.log().Info("separate documents generated", "rows", len(rows))
	return out, nil
}

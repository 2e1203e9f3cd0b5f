package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrInvalidJSON   = errors.New("invalid JSON")
	ErrInvalidImport = errors.New("JSON must contain packs: []")
)

type importPuzzle struct {
	Category any `json:"category"`
	Answer   any `json:"answer"`
}

type importPack struct {
	Name    any               `json:"name"`
	Puzzles []json.RawMessage `json:"puzzles"`
}

type ImportedPack struct {
	Name  string `json:"name"`
	Added int    `json:"added"`
}

type ImportResult struct {
	OK         bool           `json:"ok"`
	TotalAdded int            `json:"total_added"`
	Packs      []ImportedPack `json:"packs"`
}

// ImportPacks loads a {"packs":[{"name":..,"puzzles":[{"category":..,"answer":..}]}]}
// document. Packs without a name or puzzles and puzzles without a category or
// answer are skipped; a document that is not JSON or has no packs is rejected
// before anything is written.
func ImportPacks(ctx context.Context, ps PuzzleStore, r io.Reader) (ImportResult, error) {
	var doc struct {
		Packs []json.RawMessage `json:"packs"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return ImportResult{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if len(doc.Packs) == 0 {
		return ImportResult{}, ErrInvalidImport
	}

	res := ImportResult{OK: true, Packs: []ImportedPack{}}
	for _, raw := range doc.Packs {
		var pack importPack
		if err := json.Unmarshal(raw, &pack); err != nil {
			continue
		}
		name := strings.TrimSpace(asString(pack.Name))
		if name == "" || len(pack.Puzzles) == 0 {
			continue
		}

		var lines []PuzzleLine
		for _, rawPz := range pack.Puzzles {
			var pz importPuzzle
			if err := json.Unmarshal(rawPz, &pz); err != nil {
				continue
			}
			cat := strings.TrimSpace(asString(pz.Category))
			ans := strings.TrimSpace(asString(pz.Answer))
			if cat != "" && ans != "" {
				lines = append(lines, PuzzleLine{Category: cat, Answer: ans})
			}
		}
		if len(lines) == 0 {
			continue
		}

		packID, err := ps.EnsurePack(ctx, name)
		if err != nil {
			return res, fmt.Errorf("ensure pack %q: %w", name, err)
		}
		n, err := ps.AddPuzzles(ctx, &packID, lines)
		if err != nil {
			return res, fmt.Errorf("add puzzles to %q: %w", name, err)
		}
		res.TotalAdded += n
		res.Packs = append(res.Packs, ImportedPack{Name: name, Added: n})
	}
	return res, nil
}

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

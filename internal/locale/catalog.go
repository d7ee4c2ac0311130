// Package locale covers the two translation concerns the platform has: the
// .po catalog tooling the admin CLI exposes and the per-request locale
// negotiation the sites run.
package locale

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"github.com/leonelquinteros/gotext"
)

// Stats summarizes one .po catalog.
type Stats struct {
	Translated   int
	Untranslated int
	Fuzzy        int
}

// Total counts every entry in the catalog.
func (s Stats) Total() int {
	return s.Translated + s.Untranslated
}

// ReadStats parses a .po file and counts its entries. Fuzzy entries are
// flagged in comments, which the parser drops, so they are counted off the
// raw bytes.
func ReadStats(path string) (Stats, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Stats{}, fmt.Errorf("read catalog: %w", err)
	}

	po := gotext.NewPo()
	po.Parse(raw)

	var stats Stats
	for id, tr := range po.GetDomain().GetTranslations() {
		if id == "" {
			// Header entry.
			continue
		}
		if tr.IsTranslated() {
			stats.Translated++
		} else {
			stats.Untranslated++
		}
	}
	stats.Fuzzy = bytes.Count(raw, []byte("#, fuzzy"))
	return stats, nil
}

// MergeOptions tunes a catalog merge.
type MergeOptions struct {
	// PreferExtra lets the extra catalog win on conflicting entries.
	PreferExtra bool
}

// MergeResult reports what a merge did.
type MergeResult struct {
	Entries   int
	Added     int
	Conflicts int
}

// Merge unions two .po catalogs into one. The base catalog wins on
// conflicting non-empty entries unless PreferExtra; untranslated entries
// survive so translators keep seeing them.
func Merge(basePath, extraPath, outPath string, opts MergeOptions) (MergeResult, error) {
	baseRaw, err := os.ReadFile(basePath)
	if err != nil {
		return MergeResult{}, fmt.Errorf("read base catalog: %w", err)
	}
	extraRaw, err := os.ReadFile(extraPath)
	if err != nil {
		return MergeResult{}, fmt.Errorf("read extra catalog: %w", err)
	}

	base := gotext.NewPo()
	base.Parse(baseRaw)
	extra := gotext.NewPo()
	extra.Parse(extraRaw)

	domain := base.GetDomain()
	existing := domain.GetTranslations()

	var result MergeResult
	extraEntries := extra.GetDomain().GetTranslations()
	ids := make([]string, 0, len(extraEntries))
	for id := range extraEntries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		tr := extraEntries[id]
		if id == "" || tr.PluralID != "" {
			// Headers stay from the base; plural entries cannot be rebuilt
			// through Set and are kept only from the base catalog.
			continue
		}
		cur, ok := existing[id]
		switch {
		case !ok:
			domain.Set(id, tr.Get())
			result.Added++
		case tr.IsTranslated() && (!cur.IsTranslated() || opts.PreferExtra):
			if cur.IsTranslated() {
				result.Conflicts++
			}
			domain.Set(id, tr.Get())
		case tr.IsTranslated() && cur.IsTranslated():
			result.Conflicts++
		}
	}

	out, err := base.MarshalText()
	if err != nil {
		return MergeResult{}, fmt.Errorf("serialize merged catalog: %w", err)
	}
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return MergeResult{}, fmt.Errorf("write merged catalog: %w", err)
	}

	for id := range domain.GetTranslations() {
		if id != "" {
			result.Entries++
		}
	}
	return result, nil
}

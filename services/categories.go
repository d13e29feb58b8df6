package services

import (
	"strings"

	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"account-dispenser/models"
)

// categoryKey is the matching key for a tag or a search term: NFC, case-folded,
// whitespace collapsed. Every other character is kept.
func categoryKey(raw string) string {
	return cases.Fold().String(categoryDisplayName(raw))
}

// categorySlug is the URL-friendly label for a tag. Tags that slugify to
// nothing (symbols only) fall back to their key.
func categorySlug(raw string) string {
	if s := slug.Make(strings.TrimSpace(raw)); s != "" {
		return s
	}
	return categoryKey(raw)
}

// categoryDisplayName keeps the ingested spelling with whitespace collapsed.
func categoryDisplayName(raw string) string {
	return norm.NFC.String(strings.Join(strings.Fields(raw), " "))
}

// normalizeCategories drops blank tags and collapses duplicates by key.
func normalizeCategories(raw []string) []models.RecordCategory {
	seen := make(map[string]struct{}, len(raw))
	out := make([]models.RecordCategory, 0, len(raw))
	for _, r := range raw {
		key := categoryKey(r)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, models.RecordCategory{
			Name:     categoryDisplayName(r),
			MatchKey: key,
			Slug:     categorySlug(r),
		})
	}
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE pattern for substring matching, escaped with '\'.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

const categoryMatchSQL = "EXISTS (SELECT 1 FROM record_categories rc WHERE rc.record_id = credential_records.id AND rc.match_key LIKE ? ESCAPE '\\')"

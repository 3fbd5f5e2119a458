package load

import (
	"strings"
	"unicode"

	"github.com/solarroi/solarroi/pkg/types"
)

// MatchReason describes why a meter was proposed for a tenant.
type MatchReason string

const (
	MatchShopName    MatchReason = "shopName"
	MatchShopNumber  MatchReason = "shopNumber"
	MatchPartialName MatchReason = "partialName"
)

// MeterMatch is a proposed tenant to meter import assignment.
type MeterMatch struct {
	TenantID      string      `json:"tenantID"`
	MeterImportID string      `json:"meterImportID"`
	Reason        MatchReason `json:"reason"`
}

const minPartialLength = 4

// MatchMeters proposes meter imports for tenants without a meter by comparing
// normalized names. A tenant is only matched when its best candidate is
// unambiguous.
func MatchMeters(tenants []types.Tenant, imports []types.MeterImport) []MeterMatch {
	var matches []MeterMatch
	for _, t := range tenants {
		if t.MeterImportID != "" || t.StackedProfileID != "" {
			continue
		}
		name := normalize(t.Name)
		tokens := tokenize(t.Name)
		if name == "" {
			continue
		}

		bestScore, bestCount := 0, 0
		var best MeterMatch
		for _, m := range imports {
			score, reason := matchScore(name, tokens, m)
			if score == 0 {
				continue
			}
			switch {
			case score > bestScore:
				bestScore, bestCount = score, 1
				best = MeterMatch{TenantID: t.ID, MeterImportID: m.ID, Reason: reason}
			case score == bestScore:
				bestCount++
			}
		}
		if bestCount == 1 {
			matches = append(matches, best)
		}
	}
	return matches
}

func matchScore(tenantName string, tenantTokens map[string]struct{}, m types.MeterImport) (int, MatchReason) {
	shop := normalize(m.ShopName)
	if shop != "" && shop == tenantName {
		return 3, MatchShopName
	}
	if num := normalize(m.ShopNumber); num != "" {
		if _, ok := tenantTokens[num]; ok {
			return 2, MatchShopNumber
		}
	}
	if len(shop) >= minPartialLength && len(tenantName) >= minPartialLength &&
		(strings.Contains(shop, tenantName) || strings.Contains(tenantName, shop)) {
		return 1, MatchPartialName
	}
	return 0, ""
}

// normalize lowercases s and drops everything but letters and digits.
func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func tokenize(s string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, f := range strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		tokens[normalize(f)] = struct{}{}
	}
	return tokens
}

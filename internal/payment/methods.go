package payment

import (
	"sort"
	"strings"
)

type MethodGroup struct {
	Category Category        `json:"category"`
	Methods  []PaymentMethod `json:"methods"`
}

// GroupMethods groups by category for display. QRIS always comes first,
// the remaining groups are ordered by name. Order inside a group is kept.
func GroupMethods(methods []PaymentMethod) []MethodGroup {
	index := map[Category]int{}
	var groups []MethodGroup

	for _, m := range methods {
		cat := normalizeCategory(m.Category)
		i, ok := index[cat]
		if !ok {
			i = len(groups)
			index[cat] = i
			groups = append(groups, MethodGroup{Category: cat})
		}
		groups[i].Methods = append(groups[i].Methods, m)
	}

	sort.SliceStable(groups, func(a, b int) bool {
		ca, cb := groups[a].Category, groups[b].Category
		if ca == CategoryQRIS || cb == CategoryQRIS {
			return ca == CategoryQRIS && cb != CategoryQRIS
		}
		return ca < cb
	})
	return groups
}

// FindMethod looks a method up by name, case-insensitively.
func FindMethod(methods []PaymentMethod, name string) (PaymentMethod, bool) {
	name = strings.TrimSpace(name)
	for _, m := range methods {
		if strings.EqualFold(m.Name, name) {
			return m, true
		}
	}
	return PaymentMethod{}, false
}

func normalizeCategory(c Category) Category {
	return Category(strings.ToUpper(strings.TrimSpace(string(c))))
}

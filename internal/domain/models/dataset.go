// internal/domain/models/dataset.go
package models

import "sort"

// Datasets maps the public dataset name to its collection. Only these
// collections are reachable through the dataset proxy.
var Datasets = map[string]string{
	"indicators": "fii_indicators",
	"dividends":  "fii_dividends",
	"portfolio":  "fii_portfolio",
}

// DatasetCollection returns the collection for name.
func DatasetCollection(name string) (string, bool) {
	c, ok := Datasets[name]
	return c, ok
}

// DatasetNames returns the public names, sorted.
func DatasetNames() []string {
	out := make([]string, 0, len(Datasets))
	for k := range Datasets {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

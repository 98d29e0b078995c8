package estimator

import (
	"sort"

	"github.com/kailas-cloud/housepipe/internal/domain"
)

// labelEncoder maps categories to integer codes in sorted order.
// It is built once at fit time and never changes afterwards.
type labelEncoder struct {
	classes []string
	index   map[string]int64
}

func fitLabelEncoder(values []string) *labelEncoder {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	classes := make([]string, 0, len(seen))
	for v := range seen {
		classes = append(classes, v)
	}
	sort.Strings(classes)
	return newLabelEncoder(classes)
}

// newLabelEncoder builds an encoder from already sorted unique classes.
func newLabelEncoder(classes []string) *labelEncoder {
	index := make(map[string]int64, len(classes))
	for i, c := range classes {
		index[c] = int64(i)
	}
	return &labelEncoder{classes: classes, index: index}
}

func (e *labelEncoder) transform(column string, values []string) ([]int64, error) {
	out := make([]int64, len(values))
	for i, v := range values {
		code, ok := e.index[v]
		if !ok {
			return nil, domain.NewUnknownCategory(column, v)
		}
		out[i] = code
	}
	return out, nil
}

func (e *labelEncoder) classList() []string {
	out := make([]string, len(e.classes))
	copy(out, e.classes)
	return out
}

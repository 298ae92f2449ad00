package verdict

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"github.com/BurntSushi/toml"

	"DeSynth/pkg/models"
)

//go:embed explanations.toml
var catalogTOML string

// Severity ranks how strongly an explanation points at synthesis
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

func (s Severity) order() int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	}
	return 2
}

// Explanation is the user-facing copy of one flag
type Explanation struct {
	Tag         string   `toml:"-" json:"tag" yaml:"tag"`
	Title       string   `toml:"title" json:"title" yaml:"title"`
	Description string   `toml:"description" json:"description" yaml:"description"`
	Severity    Severity `toml:"severity" json:"severity" yaml:"severity"`
}

// sharedSection holds copy for flags every module may raise
const sharedSection = "shared"

var (
	catalogOnce sync.Once
	catalog     map[string]map[string]Explanation
	catalogErr  error
)

func loadCatalog() (map[string]map[string]Explanation, error) {
	catalogOnce.Do(func() {
		if _, err := toml.Decode(catalogTOML, &catalog); err != nil {
			catalogErr = fmt.Errorf("decode explanation catalog: %w", err)
		}
	})
	return catalog, catalogErr
}

// Describe returns the explanation of a "module:flag" tag
func Describe(tag string) (Explanation, error) {
	m, f, err := models.ParseNamespaced(tag)
	if err != nil {
		return Explanation{}, err
	}
	cat, err := loadCatalog()
	if err != nil {
		return Explanation{}, err
	}

	e, ok := cat[string(m)][string(f)]
	if !ok {
		e, ok = cat[sharedSection][string(f)]
	}
	if !ok {
		return Explanation{}, fmt.Errorf("no explanation for %s", tag)
	}
	e.Tag = tag
	return e, nil
}

// DescribeAll describes every known tag, most severe first. Unknown tags are skipped.
func DescribeAll(tags []string) []Explanation {
	out := make([]Explanation, 0, len(tags))
	for _, tag := range tags {
		if e, err := Describe(tag); err == nil {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Severity.order() < out[j].Severity.order()
	})
	return out
}

// Catalog lists the explanation of every flag of every module, in module order
func Catalog() []Explanation {
	modules := append(append([]models.Module{}, models.AllModules...), models.ModuleFinal)
	var out []Explanation
	for _, m := range modules {
		for _, f := range models.FlagsFor(m) {
			if e, err := Describe(models.Namespaced(m, f)); err == nil {
				out = append(out, e)
			}
		}
	}
	return out
}

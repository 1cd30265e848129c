package registry

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

const supportedContractMajor = 1

// Contributor is an independent component that declares tiles through its own EntrySource.
type Contributor struct {
	Name            string
	Package         string
	ContractVersion string
	Source          EntrySource
}

type Definition struct {
	Name            string
	Package         string
	ContractVersion string
}

// Contributors keeps registered tile contributors in registration order.
type Contributors struct {
	mu     sync.RWMutex
	byName map[string]int
	list   []Contributor
}

func NewContributors(contributors ...Contributor) *Contributors {
	c := &Contributors{byName: map[string]int{}}
	for _, contributor := range contributors {
		_ = c.Register(contributor)
	}
	return c
}

func (c *Contributors) Register(contributor Contributor) error {
	name := normalizeName(contributor.Name)
	if name == "" {
		return fmt.Errorf("contributor name is required")
	}
	if contributor.Source == nil {
		return fmt.Errorf("contributor %s: source is required", name)
	}
	if strings.TrimSpace(contributor.ContractVersion) == "" {
		return fmt.Errorf("contributor %s: contract_version is required", name)
	}
	if !IsVersionCompatible(contributor.ContractVersion) {
		return fmt.Errorf("contributor %s: unsupported contract_version=%s", name, contributor.ContractVersion)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.byName[name]; exists {
		return fmt.Errorf("contributor already registered: %s", name)
	}
	contributor.Name = name
	c.byName[name] = len(c.list)
	c.list = append(c.list, contributor)
	return nil
}

// Source merges every registered contributor, earlier registrations first.
func (c *Contributors) Source() EntrySource {
	if c == nil {
		return Merge()
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	sources := make([]EntrySource, 0, len(c.list))
	for _, contributor := range c.list {
		sources = append(sources, contributor.Source)
	}
	return Merge(sources...)
}

func (c *Contributors) Definitions() []Definition {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	defs := make([]Definition, 0, len(c.list))
	for _, contributor := range c.list {
		defs = append(defs, Definition{
			Name:            contributor.Name,
			Package:         contributor.Package,
			ContractVersion: contributor.ContractVersion,
		})
	}
	sort.Slice(defs, func(i, j int) bool {
		return defs[i].Name < defs[j].Name
	})
	return defs
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func IsVersionCompatible(version string) bool {
	major, ok := contractMajor(version)
	return ok && major == supportedContractMajor
}

func contractMajor(version string) (int, bool) {
	v := strings.ToLower(strings.TrimSpace(version))
	if v == "" || !strings.HasPrefix(v, "v") {
		return 0, false
	}
	v = strings.TrimPrefix(v, "v")
	if v == "" {
		return 0, false
	}
	parts := strings.SplitN(v, ".", 2)
	major, err := strconv.Atoi(parts[0])
	if err != nil || major <= 0 {
		return 0, false
	}
	return major, true
}

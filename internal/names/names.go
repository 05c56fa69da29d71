// Package names interns code addresses into dense, stable ids for use
// by the Callgrind and Graphviz emitters.
package names

import "github.com/orbcode/orbprofile/internal/symbols"

// Resolver is the narrow symbol-lookup contract the cache needs; it is
// satisfied by *symbols.Resolver.
type Resolver interface {
	Lookup(addr uint32, stripPrefix string) (symbols.Record, bool)
}

// InternedName is a cached resolver answer plus the dense index
// assigned to it on first insertion and the scratch Seen flag the
// emitters use to avoid re-declaring a file/function pair.
type InternedName struct {
	Record symbols.Record
	Index  uint32
	Seen   bool
}

// Cache assigns stable, dense ids to addresses keyed by the address
// itself (spec.md §4.1: "keyed by the instruction address at which
// they were first observed"), so the expensive resolver lookup runs
// at most once per distinct address within a sampling window.
type Cache struct {
	resolver    Resolver
	stripPrefix string
	byAddr      map[uint32]*InternedName
	order       []*InternedName
}

// NewCache creates a cache backed by resolver. stripPrefix is passed
// through to every resolver lookup (spec.md §6 `-d`).
func NewCache(resolver Resolver, stripPrefix string) *Cache {
	return &Cache{
		resolver:    resolver,
		stripPrefix: stripPrefix,
		byAddr:      make(map[uint32]*InternedName),
	}
}

// LookupOrInsert returns the cached entry for addr, resolving and
// assigning it a new dense index on first sight.
func (c *Cache) LookupOrInsert(addr uint32) *InternedName {
	if e, ok := c.byAddr[addr]; ok {
		return e
	}
	record, _ := c.resolver.Lookup(addr, c.stripPrefix)
	e := &InternedName{
		Record: record,
		Index:  uint32(len(c.order)),
	}
	c.byAddr[addr] = e
	c.order = append(c.order, e)
	return e
}

// ResetSeen clears the Seen scratch flag on every entry. Called once
// at the start of each emission pass.
func (c *Cache) ResetSeen() {
	for _, e := range c.order {
		e.Seen = false
	}
}

// Len returns the number of distinct addresses interned so far.
func (c *Cache) Len() int {
	return len(c.order)
}

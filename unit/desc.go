package unit

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/algesten/caudio/hostapi"
	"github.com/algesten/caudio/internal/errors"
)

// Description is one discoverable component with its display metadata.
type Description struct {
	Component hostapi.Component
	Name      string
	Version   hostapi.Version
}

// Registry walks take a lock on the host side, so discovery results are
// cached briefly. Lookups for hot paths (reopening the default output
// component on device change) hit the cache.
var descCache = gocache.New(30*time.Second, time.Minute)

// List returns all components matching the search description, with zero
// fields acting as wildcards.
func List(host hostapi.UnitHost, search hostapi.ComponentDescription) []Description {
	key := fmt.Sprintf("%p/%d/%d/%d", host, search.Type, search.SubType, search.Manufacturer)
	if cached, ok := descCache.Get(key); ok {
		return cached.([]Description)
	}

	var out []Description
	for _, c := range host.FindComponents(search) {
		name, version, status := host.ComponentInfo(c)
		if status != hostapi.NoErr {
			continue
		}
		out = append(out, Description{Component: c, Name: name, Version: version})
	}

	descCache.Set(key, out, gocache.DefaultExpiration)
	return out
}

// First returns the first component matching the search description.
func First(host hostapi.UnitHost, search hostapi.ComponentDescription) (Description, error) {
	all := List(host, search)
	if len(all) == 0 {
		return Description{}, errors.Newf("no component matches type=%d subtype=%d manufacturer=%d",
			search.Type, search.SubType, search.Manufacturer).
			Component("unit").
			Category(errors.CategoryResource).
			Build()
	}
	return all[0], nil
}

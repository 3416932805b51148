package resolver

import (
	"sort"

	"github.com/pathlight/urlchain/internal/types"
)

// Aggregate groups resolved chains by their final assembled value,
// producing one endpoint record per distinct value with every
// contributing declaration attached. Dynamic placeholders group
// verbatim. Output is deterministic regardless of chain arrival order:
// within a group the chains sort by file path then line, the first
// chain after that sort supplies the endpoint's segments, base
// reference and method, and endpoints sort by value.
func Aggregate(chains []*types.ConstructionChain) []types.ResolvedEndpoint {
	grouped := make(map[string][]*types.ConstructionChain)

	for _, chain := range chains {
		if chain == nil {
			continue
		}
		value := chain.FullValue()
		if value == "" {
			// Nothing resolvable at all; not an endpoint
			continue
		}
		grouped[value] = append(grouped[value], chain)
	}

	result := make([]types.ResolvedEndpoint, 0, len(grouped))
	for value, group := range grouped {
		sort.Slice(group, func(i, j int) bool {
			a, b := group[i].Declaration, group[j].Declaration
			if a.File != b.File {
				return a.File < b.File
			}
			return a.Line < b.Line
		})

		endpoint := types.ResolvedEndpoint{
			FullValue:     value,
			Segments:      group[0].Segments,
			BaseReference: group[0].BaseReference,
		}
		for _, chain := range group {
			endpoint.References = append(endpoint.References, chain.Declaration)
			if endpoint.Method == "" {
				endpoint.Method = chain.Flags.Method
			}
			if chain.IsPartial() {
				endpoint.IsPartial = true
			}
		}
		result = append(result, endpoint)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].FullValue < result[j].FullValue
	})

	return result
}

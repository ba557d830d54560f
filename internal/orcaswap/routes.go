package orcaswap

import (
	"sort"
	"strings"
)

// The two hub stablecoins. Pair keys are canonicalized so that hub tokens
// trail, which keeps "SOL/USDC" and "USDC/SOL" on the same route-table
// entry.
const (
	hubUSDC = "USDC"
	hubUSDT = "USDT"
)

// OrderTokenPair canonicalizes an unordered token pair:
//   - USDC and USDT together order as (USDC, USDT);
//   - otherwise a single hub token trails;
//   - otherwise lexicographic order of symbols.
func OrderTokenPair(tokenX, tokenY string) (string, string) {
	switch {
	case tokenX == hubUSDC && tokenY == hubUSDT:
		return tokenX, tokenY
	case tokenY == hubUSDC && tokenX == hubUSDT:
		return tokenY, tokenX
	case tokenY == hubUSDC || tokenY == hubUSDT:
		return tokenX, tokenY
	case tokenX == hubUSDC || tokenX == hubUSDT:
		return tokenY, tokenX
	case tokenX < tokenY:
		return tokenX, tokenY
	default:
		return tokenY, tokenX
	}
}

// CanonicalPairKey returns the route-table key for an unordered token pair.
func CanonicalPairKey(tokenX, tokenY string) string {
	a, b := OrderTokenPair(tokenX, tokenY)
	return a + "/" + b
}

// pairTokens splits a canonical key back into its two symbols.
func pairTokens(key string) (string, string) {
	i := strings.IndexByte(key, '/')
	if i < 0 {
		return key, ""
	}
	return key[:i], key[i+1:]
}

// contains reports whether the pool trades the given token on either side.
func poolContains(p *Pool, token string) bool {
	return p.TokenAName == token || p.TokenBName == token
}

func poolOtherToken(p *Pool, token string) string {
	if p.TokenAName == token {
		return p.TokenBName
	}
	return p.TokenAName
}

// BuildRouteTable precomputes every 1-hop and 2-hop route between each
// unordered pair of non-pool tokens. One-time O(tokens^2 + pools^2) work at
// load; rebuilt only on explicit reload, never incrementally.
func BuildRouteTable(tokens map[string]Token, pools map[string]Pool) RouteTable {
	routable := make([]string, 0, len(tokens))
	for name, t := range tokens {
		if t.PoolToken {
			continue
		}
		routable = append(routable, name)
	}
	sort.Strings(routable)

	// Deterministic pool order keeps route discovery (and therefore
	// first-seen tie-breaks downstream) stable across loads.
	poolNames := make([]string, 0, len(pools))
	for name := range pools {
		poolNames = append(poolNames, name)
	}
	sort.Strings(poolNames)

	// Index pools by traded token once, so the pair loop only ever walks
	// pools that can actually participate in a route. The per-token lists
	// inherit the sorted name order.
	poolsByToken := make(map[string][]string)
	for _, name := range poolNames {
		p := pools[name]
		poolsByToken[p.TokenAName] = append(poolsByToken[p.TokenAName], name)
		if p.TokenBName != p.TokenAName {
			poolsByToken[p.TokenBName] = append(poolsByToken[p.TokenBName], name)
		}
	}

	table := make(RouteTable)
	for i := 0; i < len(routable); i++ {
		for j := i + 1; j < len(routable); j++ {
			first, second := OrderTokenPair(routable[i], routable[j])
			key := first + "/" + second

			var routes []Route

			// direct routes: pools trading exactly this pair
			for _, name := range poolsByToken[first] {
				p := pools[name]
				if poolContains(&p, second) {
					routes = append(routes, Route{name})
				}
			}

			// transitive routes: chain two distinct pools through a shared
			// intermediary token
			for _, name1 := range poolsByToken[first] {
				p1 := pools[name1]
				mid := poolOtherToken(&p1, first)
				if mid == second {
					continue
				}
				for _, name2 := range poolsByToken[mid] {
					if name2 == name1 {
						continue
					}
					p2 := pools[name2]
					if poolContains(&p2, second) {
						routes = append(routes, Route{name1, name2})
					}
				}
			}

			if len(routes) > 0 {
				table[key] = routes
			}
		}
	}
	return table
}

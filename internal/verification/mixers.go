package verification

import "github.com/sand/wallet-risk-engine/backend/internal/shared"

// KnownMixers are sanctioned Tornado Cash contracts on Ethereum mainnet.
var KnownMixers = []string{
	"0x722122df12d4e14e13ac3b6895a86e84145b6967", // proxy
	"0xd90e2f925da726b50c4ed8d0fb90ad053324f31b", // router
	"0x12d66f87a04a9e220743712ce6d9bb1b5616b8fc", // 0.1 ETH
	"0x47ce0c6ed5b0ce3d3a51fdb1c52dc66a7c3c2936", // 1 ETH
	"0x910cbd523d972eb0a6f4cae4618ad62622b39dbf", // 10 ETH
	"0xa160cdab225685da1d56aa342ad8841c3b53f291", // 100 ETH
	"0xd96f2b1c14db8458374d9aca76e26c3d18364307",
	"0x8589427373d6d84e98730d7795d8f6f8731fda16",
}

// MixerSet is a case-insensitive set of addresses.
type MixerSet map[string]struct{}

func NewMixerSet(addresses []string) MixerSet {
	s := make(MixerSet, len(addresses))
	for _, a := range addresses {
		s[shared.NormalizeAddress(a)] = struct{}{}
	}
	return s
}

func (s MixerSet) Contains(address string) bool {
	if address == "" {
		return false
	}
	_, ok := s[shared.NormalizeAddress(address)]
	return ok
}

// Matches returns the distinct mixer addresses among candidates, in first-seen order.
func (s MixerSet) Matches(candidates ...string) []string {
	var (
		matches []string
		seen    = make(map[string]struct{})
	)
	for _, c := range candidates {
		if !s.Contains(c) {
			continue
		}
		n := shared.NormalizeAddress(c)
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		matches = append(matches, n)
	}
	return matches
}

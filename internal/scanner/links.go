package scanner

import "fmt"

// ---------------------------------------------------------------------------
// Reference links — explorer / DEX / chart / security pages per detection
// ---------------------------------------------------------------------------

// BuildLinks returns the useful external pages for a detected token.
// Unknown chains get an empty map.
func BuildLinks(chain, token, pair string) map[string]string {
	switch chain {
	case "ethereum":
		return map[string]string{
			"explorer_token": fmt.Sprintf("https://etherscan.io/token/%s", token),
			"explorer_pair":  fmt.Sprintf("https://etherscan.io/address/%s", pair),
			"swap":           fmt.Sprintf("https://app.uniswap.org/#/swap?outputCurrency=%s", token),
			"dextools":       fmt.Sprintf("https://www.dextools.io/app/ether/pair-explorer/%s", pair),
			"dexscreener":    fmt.Sprintf("https://dexscreener.com/ethereum/%s", pair),
			"honeypot_is":    fmt.Sprintf("https://honeypot.is/ethereum?address=%s", token),
			"tokensniffer":   fmt.Sprintf("https://tokensniffer.com/token/eth/%s", token),
		}
	case "bsc":
		return map[string]string{
			"explorer_token": fmt.Sprintf("https://bscscan.com/token/%s", token),
			"explorer_pair":  fmt.Sprintf("https://bscscan.com/address/%s", pair),
			"swap":           fmt.Sprintf("https://pancakeswap.finance/swap?outputCurrency=%s", token),
			"dextools":       fmt.Sprintf("https://www.dextools.io/app/bnb/pair-explorer/%s", pair),
			"dexscreener":    fmt.Sprintf("https://dexscreener.com/bsc/%s", pair),
			"poocoin":        fmt.Sprintf("https://poocoin.app/tokens/%s", token),
			"honeypot_is":    fmt.Sprintf("https://honeypot.is/bsc?address=%s", token),
			"tokensniffer":   fmt.Sprintf("https://tokensniffer.com/token/bsc/%s", token),
			"rugcheck":       fmt.Sprintf("https://rugcheck.xyz/tokens/%s", token),
		}
	default:
		return map[string]string{}
	}
}

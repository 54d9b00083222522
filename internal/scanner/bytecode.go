package scanner

import (
	"encoding/hex"
	"strings"

	"github.com/rughunter/rughunter/internal/evm"
)

// ---------------------------------------------------------------------------
// Bytecode heuristics — selector/substring scan for dangerous capabilities
// ---------------------------------------------------------------------------

// Known 4-byte selectors and marker strings. This is substring matching on
// hex-encoded bytecode, not decompilation: it can miss real capabilities
// and false-positive on unrelated code. Treat every flag as best-effort.
var (
	mintSelectors = []string{
		"40c10f19", // mint(address,uint256)
		"a0712d68", // mint(uint256)
	}
	pauseSelectors = []string{
		"8456cb59", // pause()
		"5c975abb", // paused()
	}
	blacklistMarkers = []string{
		"f9f92be4", // blacklist(address)
		hex.EncodeToString([]byte("blacklist")),
		hex.EncodeToString([]byte("banned")),
	}
	proxyMarkers = []string{
		"363d3d373d3d3d363d73", // EIP-1167 minimal proxy prefix
		hex.EncodeToString([]byte("delegatecall")),
	}
)

// ScanBytecode extracts heuristic danger flags from deployed bytecode.
// Empty bytecode yields the zero flags.
func ScanBytecode(code []byte) evm.BytecodeFlags {
	if len(code) == 0 {
		return evm.BytecodeFlags{}
	}
	hexCode := strings.ToLower(hex.EncodeToString(code))

	return evm.BytecodeFlags{
		CanMint:      containsAny(hexCode, mintSelectors),
		CanPause:     containsAny(hexCode, pauseSelectors),
		HasBlacklist: containsAny(hexCode, blacklistMarkers),
		IsProxy:      containsAny(hexCode, proxyMarkers),
	}
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

package sui

// Networks maps network names to fullnode JSON-RPC URLs
var Networks = map[string]string{
	"localnet": "http://127.0.0.1:9000",
	"devnet":   "https://fullnode.devnet.sui.io:443",
	"testnet":  "https://fullnode.testnet.sui.io:443",
	"mainnet":  "https://fullnode.mainnet.sui.io:443",
}

// DefaultNetwork is used when the configured name is unknown
const DefaultNetwork = "devnet"

// NetworkURL resolves a network name, falling back to devnet
func NetworkURL(name string) string {
	if url, ok := Networks[name]; ok {
		return url
	}
	return Networks[DefaultNetwork]
}

package rpc

import (
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	shell "github.com/ipfs/go-ipfs-api"

	"github.com/propella-labs/go-propella/env"
)

const defaultHTTPTimeout = time.Second * 15

// NewEthClient returns an ethereum client dialed to RPC_URL
func NewEthClient() (*ethclient.Client, error) {
	return ethclient.Dial(env.GetString("RPC_URL"))
}

// NewIPFSShell returns an IPFS shell pointed at IPFS_URL with a bounded
// per-request timeout
func NewIPFSShell() *shell.Shell {
	sh := shell.NewShell(env.GetString("IPFS_URL"))
	sh.SetTimeout(env.GetDuration("ADAPTER_TIMEOUT"))
	return sh
}

// NewHTTPClient returns the http client shared by the outbound HTTP adapters
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultHTTPTimeout}
}

package ipfs

import (
	"bytes"
	"encoding/json"
	"fmt"

	shell "github.com/ipfs/go-ipfs-api"

	"github.com/propella-labs/go-propella/service/persist"
)

// Storage uploads blobs to an IPFS node and derives the URIs that reference them.
// Content on IPFS is provenance only; the image written to local storage at mint
// time remains the primary media reference.
type Storage struct {
	shell   *shell.Shell
	gateway string
}

// NewStorage creates a storage adapter on the given shell, deriving gateway URLs
// from the given base (e.g. https://ipfs.io)
func NewStorage(sh *shell.Shell, gateway string) *Storage {
	return &Storage{shell: sh, gateway: gateway}
}

// Put adds the given bytes to IPFS and returns the resulting CID
func (s *Storage) Put(data []byte) (string, error) {
	cid, err := s.shell.Add(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("adding to IPFS: %w", err)
	}
	return cid, nil
}

// PutMetadata uploads the token metadata document referencing the already-uploaded
// image CID and returns the metadata CID
func (s *Storage) PutMetadata(name, description, imageCID string) (string, error) {
	metadata := persist.NFTMetadata{
		Name:        name,
		Description: description,
		Image:       s.URI(imageCID),
	}

	asJSON, err := json.Marshal(metadata)
	if err != nil {
		return "", err
	}

	return s.Put(asJSON)
}

// URI returns the ipfs:// URI for a CID
func (s *Storage) URI(cid string) string {
	return fmt.Sprintf("ipfs://%s", cid)
}

// GatewayURL returns the HTTP gateway URL for a CID
func (s *Storage) GatewayURL(cid string) string {
	return fmt.Sprintf("%s/ipfs/%s", s.gateway, cid)
}

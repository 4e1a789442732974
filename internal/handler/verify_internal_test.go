package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIpfsHashFromURL(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://gateway.pinata.cloud/ipfs/QmHash", "QmHash"},
		{"https://gateway.pinata.cloud/ipfs/QmHash/", "QmHash"},
		{"https://gateway.pinata.cloud/ipfs/QmHash?filename=meta.json", "QmHash"},
		{"ipfs://QmHash", "QmHash"},
		{"https://example.com/image.png", ""},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ipfsHashFromURL(tc.url), tc.url)
	}
}

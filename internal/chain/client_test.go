package chain

import "testing"

func TestNormalizeEndpoint(t *testing.T) {
	cases := map[string]string{
		"wss://ethereum-sepolia-rpc.publicnode.com": "https://ethereum-sepolia-rpc.publicnode.com",
		"ws://localhost:8546":                       "http://localhost:8546",
		"https://rpc.example.org":                   "https://rpc.example.org",
		"http://localhost:8545":                     "http://localhost:8545",
	}
	for in, want := range cases {
		if got := NormalizeEndpoint(in); got != want {
			t.Fatalf("NormalizeEndpoint(%q) = %q, want %q", in, got, want)
		}
	}
}

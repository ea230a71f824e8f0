// Key Generation CLI
// Generates a key pair for a trust graph identity and prints the base58
// public key, or inspects an existing base58-encoded key.

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/certen/trust-graph/pkg/keys"
)

func main() {
	algorithmName := flag.String("algorithm", "Ed25519", "key algorithm: Ed25519, RSA or Secp256k1")
	inspect := flag.String("inspect", "", "base58 public key to inspect instead of generating")
	flag.Parse()

	if *inspect != "" {
		if err := inspectKey(*inspect); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	algorithm, ok := keys.AlgorithmFromName(*algorithmName)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown algorithm %q\n", *algorithmName)
		os.Exit(1)
	}

	kp, err := keys.Generate(algorithm)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	pk := kp.Public()
	fmt.Printf("algorithm:  %s\n", pk.Algorithm())
	fmt.Printf("public key: %s\n", pk.ToBase58())
}

func inspectKey(encoded string) error {
	pk, err := keys.PublicKeyFromBase58(encoded)
	if err != nil {
		return err
	}
	fmt.Printf("algorithm:  %s\n", pk.Algorithm())
	fmt.Printf("raw bytes:  %d\n", len(pk.Raw()))
	return nil
}

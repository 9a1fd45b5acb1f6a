// keygen generates an RSA signing key pair and writes private_key.pem and
// public_key.pem into the given directory.
package main

import (
	"flag"
	"fmt"
	"os"

	"campusbook/auth/internal/security"
)

func main() {
	dir := flag.String("dir", "keys", "Directory to write private_key.pem and public_key.pem into")
	force := flag.Bool("force", false, "Overwrite existing key files")
	flag.Parse()

	if !*force {
		if _, err := os.Stat(*dir + "/private_key.pem"); err == nil {
			fmt.Fprintln(os.Stderr, "keygen: key files already exist; use -force to overwrite")
			os.Exit(1)
		}
	}

	keys, err := security.GenerateKeyPair()
	if err != nil {
		fmt.Fprintln(os.Stderr, "keygen:", err)
		os.Exit(1)
	}
	if err := keys.WriteFiles(*dir); err != nil {
		fmt.Fprintln(os.Stderr, "keygen:", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s/private_key.pem and %s/public_key.pem\n", *dir, *dir)
}

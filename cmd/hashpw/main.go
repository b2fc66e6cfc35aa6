// hashpw prints the Argon2id hash of a password in the format stored in
// users.password_hash. Useful for seeding accounts by hand.
//
//	go run ./cmd/hashpw <password>
//	go run ./cmd/hashpw -verify '<encoded hash>' <password>
package main

import (
	"flag"
	"fmt"
	"os"

	"crackedgrain.shop/storefront/internal/features/auth"
)

func main() {
	verify := flag.String("verify", "", "check the password against this encoded hash instead of hashing")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: hashpw [-verify <hash>] <password>")
		os.Exit(2)
	}
	password := flag.Arg(0)

	if *verify != "" {
		if !auth.VerifyPassword(password, *verify) {
			fmt.Println("mismatch")
			os.Exit(1)
		}
		fmt.Println("match")
		return
	}

	encoded, err := auth.HashPassword(password, auth.DefaultHashParams)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(encoded)
}

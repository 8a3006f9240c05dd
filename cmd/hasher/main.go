// Prints the argon2id hash for an admin password, for ADMIN_PASSWORD_HASH.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/reelacademy/ra-lms/internal/auth"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: hasher <password>")
		os.Exit(1)
	}

	hash, err := auth.HashPassword(os.Args[1])
	if err != nil {
		log.Fatalf("hash error: %v", err)
	}
	fmt.Println(hash)
}

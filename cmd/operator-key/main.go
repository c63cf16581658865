// Command operator-key prints the bcrypt hash to put in OPERATOR_KEY_HASH.
//
//	go run ./cmd/operator-key <key>
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/example/mealbox/internal/utils"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})

	if len(os.Args) != 2 || len(os.Args[1]) < 16 {
		log.Fatal().Msg("usage: operator-key <key of at least 16 characters>")
	}

	hash, err := utils.HashSecret(os.Args[1])
	if err != nil {
		log.Fatal().Err(err).Msg("failed to hash operator key")
	}

	fmt.Println(hash)
}

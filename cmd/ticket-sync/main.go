package main

import (
	"log"

	"github.com/hjoerring-data/nsp-ticket-sync/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

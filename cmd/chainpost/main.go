package main

import (
	"log"

	"github.com/eringen/chainpost"
)

func main() {
	app, err := chainpost.New(chainpost.ConfigFromEnv())
	if err != nil {
		log.Fatal(err)
	}
	defer app.Close()

	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}

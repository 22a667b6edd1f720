package main

import (
	"fmt"
	"os"

	"github.com/venafi/tls-responder/cmd/tls-responder/app"
)

func main() {
	if err := app.NewCLI().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

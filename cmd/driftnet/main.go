package main

import (
	"os"

	"horse.fit/driftnet/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}

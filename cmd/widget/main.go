package main

import (
	"fmt"
	"os"

	"github.com/ayo6706/currency-widget/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "currency widget error: %v\n", err)
		os.Exit(1)
	}
}

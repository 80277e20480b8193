package main

import (
	"github.com/cabikit/cabi/cmd/cabi/internal"
)

func main() {
	internal.Execute()
}

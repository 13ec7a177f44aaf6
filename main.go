package main

import (
	"github.com/ColonelBlimp/morselight/cmd"
	"github.com/ColonelBlimp/morselight/internal/recovery"
)

func main() {
	defer recovery.HandlePanic()
	cmd.Execute()
}

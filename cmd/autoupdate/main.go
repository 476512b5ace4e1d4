package main

import "github.com/pushchain/autoupdate/internal/ui"

func main() {
	// Initialize terminal FIRST, before any charmbracelet library touches it.
	ui.InitTerminal()

	Execute()
}

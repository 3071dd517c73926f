package main

import "agentwatch/internal/app"

func main() {
	app.Main()
}

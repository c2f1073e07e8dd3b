package main

import "faucet-agent/internal/bootstrap"

func main() {
	bootstrap.NewApp().Run()
}

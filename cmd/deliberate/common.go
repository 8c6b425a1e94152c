package main

import (
	"fmt"

	"github.com/praetorian-inc/deliberate/pkg/gateway"
)

const version = "0.1.0"

func printVersion() {
	fmt.Printf("deliberate %s\n", version)
}

func listGateways() {
	fmt.Println("Registered Gateways")
	fmt.Println("===================")
	fmt.Println()
	fmt.Printf("Gateways (%d):\n", gateway.Registry.Count())
	for _, name := range gateway.List() {
		fmt.Printf("  - %s\n", name)
	}
}

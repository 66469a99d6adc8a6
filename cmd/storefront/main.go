// Package main provides the storefront CLI.
package main

import "github.com/mesh-intelligence/storefront/internal/cli"

func main() {
	cli.Execute()
}

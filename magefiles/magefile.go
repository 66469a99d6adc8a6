//go:build mage

// Package main provides build targets for the storefront project using Mage.
//
// Usage:
//
//	mage build           Compile storefront binary to bin/
//	mage test:all        Run all tests
//	mage test:unit       Run unit tests (exclude acceptance features)
//	mage test:acceptance Run the godog feature suite
//	mage test:cover      Run all tests with a coverage profile
//	mage lint            Run golangci-lint
//	mage clean           Remove build artifacts
//	mage install         Install storefront to GOPATH/bin
//	mage stats           Print Go LOC and feature counts as JSON
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binLint    = "golangci-lint"
	binaryName = "storefront"
	binaryDir  = "bin"
	cmdDir     = "./cmd/storefront"
	modulePath = "github.com/mesh-intelligence/storefront"

	acceptancePkg = "./internal/acceptance/..."
	coverProfile  = "coverage.out"
)

// Build compiles the storefront binary to bin/, stamping the version from
// STOREFRONT_VERSION when it is set.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	args := []string{"build", "-v"}
	if v := os.Getenv("STOREFRONT_VERSION"); v != "" {
		args = append(args, "-ldflags", fmt.Sprintf("-X %s/internal/cli.Version=%s", modulePath, v))
	}
	args = append(args, "-o", filepath.Join(binaryDir, binaryName), cmdDir)
	return sh.RunV(binGo, args...)
}

// Test groups test targets (all, unit, acceptance, cover).
type Test mg.Namespace

// All runs all tests.
func (Test) All() error {
	return sh.RunV(binGo, "test", "./...")
}

// Unit runs every package except the acceptance features.
func (Test) Unit() error {
	pkgs, err := sh.Output(binGo, "list", "./...")
	if err != nil {
		return err
	}
	var unitPkgs []string
	for _, pkg := range strings.Split(pkgs, "\n") {
		if pkg != "" && !strings.HasSuffix(pkg, "/internal/acceptance") {
			unitPkgs = append(unitPkgs, pkg)
		}
	}
	if len(unitPkgs) == 0 {
		fmt.Println("No unit test packages found.")
		return nil
	}
	args := append([]string{"test"}, unitPkgs...)
	return sh.RunV(binGo, args...)
}

// Acceptance runs the godog feature suite.
func (Test) Acceptance() error {
	return sh.RunV(binGo, "test", "-v", acceptancePkg)
}

// Cover runs all tests with a coverage profile and prints the summary.
func (Test) Cover() error {
	if err := sh.RunV(binGo, "test", "-coverprofile="+coverProfile, "./..."); err != nil {
		return err
	}
	return sh.RunV(binGo, "tool", "cover", "-func="+coverProfile)
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV(binLint, "run", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	if err := os.Remove(coverProfile); err != nil && !os.IsNotExist(err) {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}

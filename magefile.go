//go:build mage
// +build mage

package main

import (
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

var (
	binDir  = "bin"
	appName = "settlement-web"
)

var Default = Run

// Tidy: go mod tidy
func Tidy() error {
	fmt.Println("go mod tidy ...")
	return sh.RunV("go", "mod", "tidy")
}

// Run: start the web server with go run
func Run() error {
	mg.Deps(Tidy)
	fmt.Println("Running (go run) ./cmd/web ...")
	return sh.RunV("go", "run", "./cmd/web")
}

// Dev: hot reload with air when available, plain go run otherwise
func Dev() error {
	if _, err := exec.LookPath("air"); err == nil {
		fmt.Println("Starting hot-reload with air ...")
		return sh.RunV("air")
	}
	fmt.Println("air not found, falling back to `go run ./cmd/web`.")
	return Run()
}

// Build: compile the server binary into bin/
func Build() error {
	mg.Deps(Tidy)
	out := filepath.Join(binDir, appName)
	fmt.Printf("Building %s ...\n", out)
	return sh.RunV("go", "build", "-o", out, "./cmd/web")
}

// Test: run the full test suite
func Test() error {
	fmt.Println("go test ./... ...")
	return sh.RunV("go", "test", "./...")
}

// Migrate: apply schema migrations
func Migrate() error {
	fmt.Println("Running migrations ...")
	return sh.RunV("go", "run", "./cmd/tools/migrate")
}

// Vet: static checks
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

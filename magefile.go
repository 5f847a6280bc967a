//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/magefile/mage/mg"
)

// Default target to run when none is specified
// If not set, running mage will list available targets
var Default = Build

func Build() error {
	mg.Deps(BuildEvtctl)
	fmt.Println("Compilation finished")
	return nil
}

func BuildEvtctl() error {
	fmt.Println("Building aesop-evtctl executable...")
	cmd := exec.Command("go", "build", "-ldflags", versionFlags(), "-o", "./bin/aesop-evtctl", "./cmd/aesop-evtctl")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func Test() error {
	fmt.Println("Running tests...")
	cmd := exec.Command("go", "test", "./...")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// versionFlags pushes the VERSION file contents into common/product, the
// same values the Makefile-less build would read at startup.
func versionFlags() string {
	raw, err := os.ReadFile("VERSION")
	if err != nil {
		return ""
	}
	var flags []string
	for _, line := range strings.Split(string(raw), "\n") {
		name, value, found := strings.Cut(line, ":=")
		if !found {
			continue
		}
		flags = append(flags, fmt.Sprintf(
			"-X=github.com/aesop-lite/control/common/product.%s=%s",
			strings.TrimSpace(name), strings.TrimSpace(value)))
	}
	return strings.Join(flags, " ")
}

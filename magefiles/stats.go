//go:build mage

package main

import (
	"bufio"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// sourceRoots are the trees that hold storefront Go code. Magefiles are
// build tooling and stay out.
var sourceRoots = []string{"cmd", "internal", "pkg"}

const featureGlob = "internal/acceptance/features/*.feature"

// codeSize is the Stats record. Line counts skip blank lines.
type codeSize struct {
	Packages  int            `json:"packages"`
	ProdLines int            `json:"go_loc_prod"`
	TestLines int            `json:"go_loc_test"`
	ByRoot    map[string]int `json:"go_loc_by_root"`
	Scenarios int            `json:"acceptance_scenario"`
	Steps     int            `json:"acceptance_steps"`
	DocWords  int            `json:"doc_wc"`
}

// Stats prints code and feature sizes of the storefront tree as JSON.
func Stats() error {
	size := codeSize{ByRoot: map[string]int{}}
	dirs := map[string]bool{}
	for _, root := range sourceRoots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) && path == root {
					return filepath.SkipDir
				}
				return err
			}
			if d.IsDir() || filepath.Ext(path) != ".go" {
				return nil
			}
			n, err := nonBlankLines(path)
			if err != nil {
				return err
			}
			dirs[filepath.Dir(path)] = true
			size.ByRoot[root] += n
			if strings.HasSuffix(path, "_test.go") {
				size.TestLines += n
			} else {
				size.ProdLines += n
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	size.Packages = len(dirs)

	features, err := filepath.Glob(featureGlob)
	if err != nil {
		return err
	}
	for _, path := range features {
		scenarios, steps, err := gherkinCounts(path)
		if err != nil {
			return err
		}
		size.Scenarios += scenarios
		size.Steps += steps
	}

	docs, err := filepath.Glob("*.md")
	if err != nil {
		return err
	}
	for _, path := range docs {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		size.DocWords += len(strings.Fields(string(data)))
	}

	enc := json.NewEncoder(os.Stdout)
	return enc.Encode(size)
}

func nonBlankLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) != "" {
			n++
		}
	}
	return n, sc.Err()
}

var stepKeywords = []string{"Given ", "When ", "Then ", "And ", "But "}

// gherkinCounts returns the scenarios and steps of one feature file. Steps
// under Background count once.
func gherkinCounts(path string) (scenarios, steps int, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, err
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Scenario:") || strings.HasPrefix(line, "Scenario Outline:") {
			scenarios++
			continue
		}
		for _, kw := range stepKeywords {
			if strings.HasPrefix(line, kw) {
				steps++
				break
			}
		}
	}
	return scenarios, steps, nil
}

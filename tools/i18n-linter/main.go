// Copyright (c) 2026 ToeiRei
// Warden - permission-gated command dispatcher
// This source code is licensed under the MIT license found in the LICENSE file.

// i18n-linter checks warden's translations: every i18n.T key used in the
// source must exist in the primary locale, and every other locale must carry
// all primary keys. Primary keys nothing references are reported as orphans.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	localesDir    = "internal/i18n/locales"
	primaryLocale = "en.yaml"
	projectRoot   = "."
)

// keyLiteral also catches keys passed around as plain strings, e.g. the
// empty-list message ids in the CLI.
var (
	tCall      = regexp.MustCompile(`i18n\.T\("([^"]+)"`)
	keyLiteral = regexp.MustCompile(`"((?:app|cli|console)\.[a-z_]+)"`)
)

func main() {
	os.Exit(run(projectRoot, filepath.Join(projectRoot, localesDir), os.Stdout))
}

// run returns the process exit code: 1 when a key is missing anywhere.
func run(root, locales string, out io.Writer) int {
	called, referenced, err := findUsedKeys(root)
	if err != nil {
		fmt.Fprintf(out, "error scanning sources: %v\n", err)
		return 1
	}
	primary, err := loadKeysFromLocale(filepath.Join(locales, primaryLocale))
	if err != nil {
		fmt.Fprintf(out, "error loading primary locale %s: %v\n", primaryLocale, err)
		return 1
	}
	fmt.Fprintf(out, "%d keys used in code, %d keys in %s\n", len(referenced), len(primary), primaryLocale)

	failed := false

	for _, key := range sortedKeys(called) {
		if _, ok := primary[key]; !ok {
			fmt.Fprintf(out, "undefined: %s\n", key)
			failed = true
		}
	}

	for _, key := range sortedKeys(primary) {
		if _, ok := referenced[key]; !ok {
			fmt.Fprintf(out, "orphaned: %s\n", key)
		}
	}

	files, err := filepath.Glob(filepath.Join(locales, "*.yaml"))
	if err != nil {
		fmt.Fprintf(out, "error listing locales: %v\n", err)
		return 1
	}
	for _, file := range files {
		if filepath.Base(file) == primaryLocale {
			continue
		}
		keys, err := loadKeysFromLocale(file)
		if err != nil {
			fmt.Fprintf(out, "error loading %s: %v\n", file, err)
			failed = true
			continue
		}
		for _, key := range sortedKeys(primary) {
			if _, ok := keys[key]; !ok {
				fmt.Fprintf(out, "missing in %s: %s\n", filepath.Base(file), key)
				failed = true
			}
		}
	}

	if failed {
		return 1
	}
	fmt.Fprintln(out, "translations are consistent")
	return 0
}

// findUsedKeys returns keys passed directly to i18n.T, and every key-shaped
// literal (a superset of the first).
func findUsedKeys(root string) (called, referenced map[string]struct{}, err error) {
	called = map[string]struct{}{}
	referenced = map[string]struct{}{}
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			switch info.Name() {
			case "tools", "_examples", ".git":
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		for _, m := range tCall.FindAllStringSubmatch(string(content), -1) {
			called[m[1]] = struct{}{}
			referenced[m[1]] = struct{}{}
		}
		for _, m := range keyLiteral.FindAllStringSubmatch(string(content), -1) {
			referenced[m[1]] = struct{}{}
		}
		return nil
	})
	return called, referenced, err
}

// loadKeysFromLocale reads a YAML file and returns a flat set of its keys.
func loadKeysFromLocale(path string) (map[string]struct{}, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := yaml.Unmarshal(content, &data); err != nil {
		return nil, err
	}
	keys := map[string]struct{}{}
	flattenYAML("", data, keys)
	return keys, nil
}

// flattenYAML joins nested map keys with dots.
func flattenYAML(prefix string, node any, keys map[string]struct{}) {
	switch v := node.(type) {
	case map[string]any:
		for k, val := range v {
			next := k
			if prefix != "" {
				next = prefix + "." + k
			}
			flattenYAML(next, val, keys)
		}
	default:
		if prefix != "" {
			keys[prefix] = struct{}{}
		}
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

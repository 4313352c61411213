// Package fixtures embeds the example domains and problems used by the
// tests and the CLI's built-in examples.
package fixtures

import (
	"embed"
	"fmt"
)

//go:embed domains/*.pddl problems/*.pddl
var FS embed.FS

// Pair names a domain file and the problem that goes with it.
type Pair struct {
	Name    string
	Domain  string
	Problem string
}

var Pairs = []Pair{
	{Name: "simple-robot", Domain: "simple_robot.pddl", Problem: "simple_delivery.pddl"},
	{Name: "blocks-world", Domain: "blocks_world.pddl", Problem: "stack_blocks.pddl"},
	{Name: "factory-automation", Domain: "factory_automation.pddl", Problem: "factory_production.pddl"},
}

func Domain(file string) (string, error) {
	return read("domains/" + file)
}

func Problem(file string) (string, error) {
	return read("problems/" + file)
}

// Load returns the domain and problem text of the named pair.
func Load(name string) (string, string, error) {
	for _, p := range Pairs {
		if p.Name != name {
			continue
		}
		d, err := Domain(p.Domain)
		if err != nil {
			return "", "", err
		}
		pr, err := Problem(p.Problem)
		if err != nil {
			return "", "", err
		}
		return d, pr, nil
	}
	return "", "", fmt.Errorf("unknown fixture %q", name)
}

func read(path string) (string, error) {
	data, err := FS.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read fixture %s: %w", path, err)
	}
	return string(data), nil
}

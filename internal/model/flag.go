package model

import "fmt"

// CLIFlag is one extra argument passed to the runner on every run.
type CLIFlag struct {
	Value   string `yaml:"value"`
	Enabled bool   `yaml:"enabled"`
}

// ActiveFlags returns the values of enabled flags, preserving order.
func ActiveFlags(flags []CLIFlag) []string {
	active := make([]string, 0, len(flags))

	for _, flag := range flags {
		if flag.Enabled && flag.Value != "" {
			active = append(active, flag.Value)
		}
	}

	return active
}

// DedupeFlags drops empty values and every repeat of a value after its first
// occurrence.
func DedupeFlags(flags []CLIFlag) []CLIFlag {
	seen := make(map[string]struct{}, len(flags))
	out := make([]CLIFlag, 0, len(flags))

	for _, flag := range flags {
		if flag.Value == "" {
			continue
		}

		if _, dup := seen[flag.Value]; dup {
			continue
		}

		seen[flag.Value] = struct{}{}
		out = append(out, flag)
	}

	return out
}

// AddFlag appends value as an enabled flag. Adding an existing value enables it
// in place instead.
func AddFlag(flags []CLIFlag, value string) ([]CLIFlag, error) {
	if value == "" {
		return flags, fmt.Errorf("flag value is empty")
	}

	out := append([]CLIFlag(nil), flags...)

	for i := range out {
		if out[i].Value == value {
			out[i].Enabled = true
			return out, nil
		}
	}

	return append(out, CLIFlag{Value: value, Enabled: true}), nil
}

// ToggleFlag flips the enabled state of value.
func ToggleFlag(flags []CLIFlag, value string) ([]CLIFlag, error) {
	out := append([]CLIFlag(nil), flags...)

	for i := range out {
		if out[i].Value == value {
			out[i].Enabled = !out[i].Enabled
			return out, nil
		}
	}

	return flags, fmt.Errorf("flag %q not found", value)
}

// RemoveFlag deletes value from flags.
func RemoveFlag(flags []CLIFlag, value string) ([]CLIFlag, error) {
	out := make([]CLIFlag, 0, len(flags))

	for _, flag := range flags {
		if flag.Value != value {
			out = append(out, flag)
		}
	}

	if len(out) == len(flags) {
		return flags, fmt.Errorf("flag %q not found", value)
	}

	return out, nil
}

package app

import (
	"fmt"
	"strconv"
	"strings"
)

// ListFlag collects a space-separated list of values. The flag may be repeated;
// every occurrence appends to the list.
type ListFlag []string

func (l *ListFlag) String() string {
	return strings.Join(*l, " ")
}

// Set implements flag.Value
func (l *ListFlag) Set(value string) error {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return fmt.Errorf("empty list")
	}
	*l = append(*l, fields...)
	return nil
}

// Ints converts every value to an integer.
func (l ListFlag) Ints() ([]int, error) {
	out := make([]int, 0, len(l))
	for _, v := range l {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", v)
		}
		out = append(out, n)
	}
	return out, nil
}

// JoinListArgs folds the bare arguments that follow one of the named list flags into
// that flag's value, so "-y 2022 2023" reaches the flag package as "-y" "2022 2023".
func JoinListArgs(args []string, names ...string) []string {
	isList := make(map[string]bool, len(names))
	for _, name := range names {
		isList["-"+name] = true
		isList["--"+name] = true
	}

	out := make([]string, 0, len(args))
	open := -1 // index in out of the value being extended
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			return append(out, args[i:]...)
		case strings.HasPrefix(arg, "-"):
			open = -1
			out = append(out, arg)
			flagName, _, hasValue := strings.Cut(arg, "=")
			if !isList[flagName] {
				continue
			}
			if hasValue {
				open = len(out) - 1
				continue
			}
			if i+1 < len(args) {
				i++
				out = append(out, args[i])
				open = len(out) - 1
			}
		case open >= 0:
			out[open] += " " + arg
		default:
			out = append(out, arg)
		}
	}
	return out
}

// ValidateStationIDs checks that every id is a numeric station code.
func ValidateStationIDs(ids []string) error {
	for _, id := range ids {
		if id == "" || strings.TrimLeft(id, "0123456789") != "" {
			return fmt.Errorf("invalid station id %q: expected digits only", id)
		}
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	levenshtein "github.com/ka-weihe/fast-levenshtein"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// ErrUnknownKey is returned by Lookup for keys that are not registered.
var ErrUnknownKey = errors.New("unknown key")

// Lookup returns the registered field for k. The error for an unknown key
// names the closest registered one.
func Lookup(k string) (Field, error) {
	if field, ok := Default[k]; ok {
		return field, nil
	}
	return Field{}, fmt.Errorf("%w %s, did you mean %s?", ErrUnknownKey, k, Closest(k))
}

// Closest returns the registered key with the smallest edit distance to k.
func Closest(k string) string {
	return lo.MinBy(Keys(), func(a, b string) bool {
		return levenshtein.Distance(k, a) < levenshtein.Distance(k, b)
	})
}

// Keys lists every registered key in sorted order.
func Keys() []string {
	keys := lo.Keys(Default)
	sort.Strings(keys)
	return keys
}

// Parse converts command line values to the type of the field's default.
func (f *Field) Parse(values []string) (any, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%s: no value", f.Key)
	}

	switch f.Value.(type) {
	case string:
		return values[0], nil
	case int:
		n, err := strconv.Atoi(values[0])
		if err != nil {
			return nil, fmt.Errorf("%s: invalid integer %q", f.Key, values[0])
		}
		return n, nil
	case bool:
		b, err := strconv.ParseBool(values[0])
		if err != nil {
			return nil, fmt.Errorf("%s: invalid boolean %q", f.Key, values[0])
		}
		return b, nil
	case []string:
		return values, nil
	default:
		return nil, fmt.Errorf("%s: unsupported type %s", f.Key, f.typeName())
	}
}

// Persist writes the current settings, creating the config file if needed.
func Persist() error {
	err := viper.WriteConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return viper.SafeWriteConfig()
	}
	return err
}

package currency

import (
	"fmt"
	"strings"
)

type ProviderName string

const (
	FrankfurterProvider ProviderName = "Frankfurter"
	EmptyProvider       ProviderName = ""
)

// ConvertToProviderFromString resolves a configured provider name, ignoring case.
func ConvertToProviderFromString(str string) (ProviderName, error) {
	switch strings.ToLower(strings.TrimSpace(str)) {
	case "frankfurter":
		return FrankfurterProvider, nil
	}

	return EmptyProvider, fmt.Errorf("%w: value %q is not a valid provider", ErrConfiguration, str)
}

func (p ProviderName) String() string {
	return string(p)
}

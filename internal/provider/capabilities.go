package provider

import (
	"fmt"
)

// ValidateCapabilities checks if provider capabilities are valid and consistent
func ValidateCapabilities(caps Capabilities) error {
	if len(caps.Kinds) == 0 {
		return fmt.Errorf("provider must support at least one media kind")
	}
	if len(caps.Sections) == 0 {
		return fmt.Errorf("provider must support at least one section")
	}
	for _, k := range caps.Kinds {
		if !k.Valid() {
			return fmt.Errorf("unknown media kind %q", k)
		}
	}
	return nil
}

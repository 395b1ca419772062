package assets

import (
	"fmt"
	"strings"
)

// ValidateAssetName rejects names that could address anything other than a
// single file in the styles or templates directory: empty names, path
// separators, and dots.
func ValidateAssetName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidAssetName)
	}
	if strings.ContainsAny(name, `/\.:`) {
		return fmt.Errorf("%w: %q", ErrInvalidAssetName, name)
	}
	return nil
}

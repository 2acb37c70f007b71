package matrix

import (
	"fmt"
	"strings"

	xerrors "github.com/xrel-dev/xrel/internal/errors"
)

// ArtifactName derives the canonical artifact name for a built binary:
// bin + "-" + target + ext. It is pure and assumes validated inputs.
func ArtifactName(bin, target, ext string) string {
	return bin + "-" + target + ext
}

// ValidateBinaryName rejects empty names and names containing path separators
func ValidateBinaryName(bin string) error {
	if strings.TrimSpace(bin) == "" {
		return xerrors.NewValidationError(nil, "binary name is required",
			"Set 'binary' in the config file or pass --binary")
	}
	if strings.ContainsAny(bin, `/\`) {
		return xerrors.NewValidationError(nil, fmt.Sprintf("binary name %q must not contain path separators", bin))
	}
	if bin == "." || bin == ".." {
		return xerrors.NewValidationError(nil, fmt.Sprintf("binary name %q is not a file name", bin))
	}
	return nil
}

// ValidateExtension accepts the empty string or a suffix beginning with "."
func ValidateExtension(ext string) error {
	if ext == "" {
		return nil
	}
	if !strings.HasPrefix(ext, ".") || len(ext) == 1 {
		return xerrors.NewValidationError(nil, fmt.Sprintf("extension %q must be empty or start with '.'", ext))
	}
	if strings.ContainsAny(ext, `/\`) {
		return xerrors.NewValidationError(nil, fmt.Sprintf("extension %q must not contain path separators", ext))
	}
	return nil
}

package errors

import "fmt"

// ConfigError marks err as a configuration failure: an unreadable or malformed
// root-directory file or label map, or a missing dataset root.
func ConfigError(err error) *ErrorBuilder {
	return New(err).Category(CategoryConfiguration)
}

// UnsupportedVersionError reports a dataset version string that is neither
// "full" nor "tiny".
func UnsupportedVersionError(version string) *EnhancedError {
	return Newf("unsupported dataset version %q", version).
		Category(CategoryUnsupportedVersion).
		Context("version", version).
		Build()
}

// LookupError reports a label id found on disk but absent from the label map.
func LookupError(labelID, where string) *EnhancedError {
	return Newf("label id %q found in %s is not in the label map", labelID, where).
		Category(CategoryLookup).
		Context("label_id", labelID).
		Build()
}

// IndexError reports a page index outside [0, length).
func IndexError(index, length int) *EnhancedError {
	return New(fmt.Errorf("index %d out of range [0, %d)", index, length)).
		Category(CategoryIndexRange).
		Context("index", index).
		Context("length", length).
		Build()
}

// IsConfigError reports whether err is a configuration error.
func IsConfigError(err error) bool { return IsCategory(err, CategoryConfiguration) }

// IsUnsupportedVersion reports whether err is an unsupported-version error.
func IsUnsupportedVersion(err error) bool { return IsCategory(err, CategoryUnsupportedVersion) }

// IsLookupError reports whether err is a label lookup error.
func IsLookupError(err error) bool { return IsCategory(err, CategoryLookup) }

// IsIndexError reports whether err is a page index error.
func IsIndexError(err error) bool { return IsCategory(err, CategoryIndexRange) }

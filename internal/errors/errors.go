// Package errors provides categorised error handling with optional telemetry reporting
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
)

// ErrorCategory groups errors for handling and reporting.
type ErrorCategory string

const (
	CategoryConfiguration      ErrorCategory = "configuration"
	CategoryUnsupportedVersion ErrorCategory = "unsupported-version"
	CategoryLookup             ErrorCategory = "label-lookup"
	CategoryIndexRange         ErrorCategory = "index-range"
	CategoryValidation         ErrorCategory = "validation"
	CategoryFileIO             ErrorCategory = "file-io"
	CategoryImageDecode        ErrorCategory = "image-decode"
	CategoryHTTP               ErrorCategory = "http-request"
	CategoryLimit              ErrorCategory = "limit"
	CategorySystem             ErrorCategory = "system-resource"
	CategoryNotFound           ErrorCategory = "not-found"
	CategoryGeneric            ErrorCategory = "generic"
)

// ComponentUnknown is used when the component cannot be determined.
const ComponentUnknown = "unknown"

// EnhancedError carries a category, the originating component and free-form
// context alongside the wrapped error.
type EnhancedError struct {
	Err       error
	Category  ErrorCategory
	Context   map[string]any
	component string

	mu       sync.RWMutex
	reported bool
}

func (ee *EnhancedError) Error() string {
	return ee.Err.Error()
}

func (ee *EnhancedError) Unwrap() error {
	return ee.Err
}

// Is matches another EnhancedError by category, otherwise defers to the wrapped error
func (ee *EnhancedError) Is(target error) bool {
	if ee2, ok := target.(*EnhancedError); ok {
		return ee.Category == ee2.Category
	}
	return Is(ee.Err, target)
}

// GetComponent returns the component the error was built in.
func (ee *EnhancedError) GetComponent() string {
	return ee.component
}

// GetContext returns a copy of the error context
func (ee *EnhancedError) GetContext() map[string]any {
	ee.mu.RLock()
	defer ee.mu.RUnlock()

	if ee.Context == nil {
		return nil
	}
	return maps.Clone(ee.Context)
}

// GetMessage returns the wrapped error's message, or "" when there is none.
func (ee *EnhancedError) GetMessage() string {
	if ee.Err != nil {
		return ee.Err.Error()
	}
	return ""
}

// MarkReported records that the error was sent to telemetry.
func (ee *EnhancedError) MarkReported() {
	ee.mu.Lock()
	defer ee.mu.Unlock()
	ee.reported = true
}

func (ee *EnhancedError) IsReported() bool {
	ee.mu.RLock()
	defer ee.mu.RUnlock()
	return ee.reported
}

// ErrorBuilder assembles an EnhancedError.
//
//	errors.New(err).Category(errors.CategoryFileIO).Context("label", id).Build()
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

// New starts a builder around err.
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// Newf starts a builder around a formatted error.
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Component overrides the component detected from the call stack.
func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Context adds one key to the error context.
func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// FileContext records the path shape, extension and size class of a file.
// The path itself is left out so reports do not leak local directory names.
func (eb *ErrorBuilder) FileContext(filePath string, fileSize int64) *ErrorBuilder {
	if filePath != "" {
		eb.Context("file_type", categorizeFilePath(filePath))
		eb.Context("file_extension", getFileExtension(filePath))
	}
	if fileSize > 0 {
		eb.Context("file_size_category", categorizeFileSize(fileSize))
	}
	return eb
}

// Build creates the EnhancedError and reports it when telemetry is active.
// The call stack is only walked for the component while a reporter listens.
func (eb *ErrorBuilder) Build() *EnhancedError {
	reporting := hasActiveReporting.Load()

	component := eb.component
	if component == "" && reporting {
		component = detectComponent()
	}
	if component == "" {
		component = ComponentUnknown
	}

	category := eb.category
	if category == "" {
		category = detectCategory(eb.err, component)
	}

	ee := &EnhancedError{
		Err:       eb.err,
		Category:  category,
		Context:   eb.context,
		component: component,
	}
	if reporting {
		reportToTelemetry(ee)
	}
	return ee
}

// hasActiveReporting is set while an enabled telemetry reporter is installed.
var hasActiveReporting atomic.Bool

// componentPackages maps package path fragments to component names.
var componentPackages = map[string]string{
	"internal/dataset":        "dataset",
	"internal/conf":           "configuration",
	"internal/previewcache":   "previewcache",
	"internal/thumbnail":      "thumbnail",
	"internal/chart":          "chart",
	"internal/securefs":       "securefs",
	"internal/httpcontroller": "http-controller",
	"internal/telemetry":      "telemetry",
}

const errorsPackagePath = "github.com/tphakala/labelgrid/internal/errors"

// detectComponent returns the component of the first caller outside this
// package.
func detectComponent() string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if frame.Function != "" && !strings.Contains(frame.Function, errorsPackagePath) {
			if component := lookupComponent(frame.Function); component != ComponentUnknown {
				return component
			}
		}
		if !more {
			return ComponentUnknown
		}
	}
}

// lookupComponent resolves a function name to a registered component, falling
// back to its package name.
func lookupComponent(funcName string) string {
	for pattern, component := range componentPackages {
		if strings.Contains(funcName, pattern) {
			return component
		}
	}

	lastPart := funcName[strings.LastIndex(funcName, "/")+1:]
	if dot := strings.Index(lastPart, "."); dot > 0 {
		return lastPart[:dot]
	}
	return ComponentUnknown
}

// detectCategory derives a category from the error chain, then from its message
func detectCategory(err error, component string) ErrorCategory {
	if err == nil {
		return CategoryGeneric
	}

	var enhErr *EnhancedError
	if stderrors.As(err, &enhErr) && enhErr.Category != "" {
		return enhErr.Category
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "out of range"):
		return CategoryIndexRange
	case strings.Contains(msg, "unsupported") && strings.Contains(msg, "version"):
		return CategoryUnsupportedVersion
	case strings.Contains(msg, "config"):
		return CategoryConfiguration
	case strings.Contains(msg, "decode") || strings.Contains(msg, "image:"):
		return CategoryImageDecode
	case strings.Contains(msg, "file") || strings.Contains(msg, "read") || strings.Contains(msg, "open"):
		return CategoryFileIO
	case strings.Contains(msg, "validation") || strings.Contains(msg, "invalid"):
		return CategoryValidation
	}

	switch component {
	case "configuration":
		return CategoryConfiguration
	case "http-controller":
		return CategoryHTTP
	case "thumbnail":
		return CategoryImageDecode
	}
	return CategoryGeneric
}

// categorizeFilePath anonymizes file paths while preserving useful structure info
func categorizeFilePath(path string) string {
	if strings.Contains(path, "/") || strings.Contains(path, "\\") {
		return "absolute-path"
	}
	return "relative-path"
}

// getFileExtension extracts file extension for categorization
func getFileExtension(path string) string {
	if lastDot := strings.LastIndex(path, "."); lastDot > 0 && lastDot < len(path)-1 {
		return strings.ToLower(path[lastDot+1:])
	}
	return "none"
}

// categorizeFileSize groups file sizes into categories
func categorizeFileSize(size int64) string {
	switch {
	case size < 1024:
		return "tiny"
	case size < 1024*1024:
		return "small"
	case size < 10*1024*1024:
		return "medium"
	case size < 100*1024*1024:
		return "large"
	default:
		return "very-large"
	}
}

// ValidationError creates a validation error
func ValidationError(message string) *EnhancedError {
	return New(NewStd(message)).
		Category(CategoryValidation).
		Build()
}

// Standard library passthrough functions

// NewStd creates a new standard error
func NewStd(text string) error {
	return stderrors.New(text)
}

// Is reports whether any error in err's tree matches target
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Join returns an error that wraps the given errors
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}

// IsCategory checks if an error is an EnhancedError with the specified category.
func IsCategory(err error, category ErrorCategory) bool {
	var enhancedErr *EnhancedError
	return As(err, &enhancedErr) && enhancedErr.Category == category
}

// CategoryOf returns the category of the first EnhancedError in err's tree,
// or CategoryGeneric when there is none.
func CategoryOf(err error) ErrorCategory {
	var enhancedErr *EnhancedError
	if As(err, &enhancedErr) {
		return enhancedErr.Category
	}
	return CategoryGeneric
}

package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingReporter struct {
	reports []*EnhancedError
}

func (r *countingReporter) ReportError(err *EnhancedError) { r.reports = append(r.reports, err) }
func (r *countingReporter) IsEnabled() bool                { return true }

func TestFastPathNoTelemetry(t *testing.T) {
	SetTelemetryReporter(nil)

	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.GetComponent())
	assert.Equal(t, CategoryGeneric, ee.Category)
}

func TestDatasetErrorConstructors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		category ErrorCategory
		check    func(error) bool
		message  string
	}{
		{
			name:     "config",
			err:      ConfigError(fmt.Errorf("line 3: expected exactly one comma")).Build(),
			category: CategoryConfiguration,
			check:    IsConfigError,
			message:  "line 3: expected exactly one comma",
		},
		{
			name:     "unsupported version",
			err:      UnsupportedVersionError("medium"),
			category: CategoryUnsupportedVersion,
			check:    IsUnsupportedVersion,
			message:  `unsupported dataset version "medium"`,
		},
		{
			name:     "lookup",
			err:      LookupError("n999", "train/n999"),
			category: CategoryLookup,
			check:    IsLookupError,
			message:  `label id "n999" found in train/n999 is not in the label map`,
		},
		{
			name:     "index",
			err:      IndexError(5, 2),
			category: CategoryIndexRange,
			check:    IsIndexError,
			message:  "index 5 out of range [0, 2)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Error(t, tt.err)
			assert.True(t, tt.check(tt.err))
			assert.Equal(t, tt.category, CategoryOf(tt.err))
			assert.Equal(t, tt.message, tt.err.Error())
		})
	}
}

func TestCategoryOfWrapped(t *testing.T) {
	t.Parallel()

	inner := IndexError(1, 1)
	wrapped := fmt.Errorf("select page: %w", inner)

	assert.True(t, IsIndexError(wrapped))
	assert.Equal(t, CategoryIndexRange, CategoryOf(wrapped))
	assert.Equal(t, CategoryGeneric, CategoryOf(fmt.Errorf("plain")))
	assert.False(t, IsLookupError(wrapped))
}

func TestDetectCategoryFromMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		msg  string
		want ErrorCategory
	}{
		{"index 3 out of range [0, 1)", CategoryIndexRange},
		{"unsupported dataset version", CategoryUnsupportedVersion},
		{"failed to read config", CategoryConfiguration},
		{"open foo.JPEG: no such file", CategoryFileIO},
		{"invalid width", CategoryValidation},
		{"something else", CategoryGeneric},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, detectCategory(fmt.Errorf("%s", tt.msg), ""), tt.msg)
	}
}

func TestReporterReceivesBuiltErrors(t *testing.T) {
	reporter := &countingReporter{}
	SetTelemetryReporter(reporter)
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	ee := New(fmt.Errorf("boom")).Category(CategoryFileIO).Component("dataset").Build()

	require.Len(t, reporter.reports, 1)
	assert.Same(t, ee, reporter.reports[0])
	assert.Equal(t, "dataset", ee.GetComponent())
}

func TestFileContextAnonymizesPath(t *testing.T) {
	t.Parallel()

	ee := New(fmt.Errorf("read failed")).
		Category(CategoryFileIO).
		FileContext("/data/tiny/train/n01/images/a.JPEG", 2048).
		Build()
	ctx := ee.GetContext()

	assert.Equal(t, "absolute-path", ctx["file_type"])
	assert.Equal(t, "jpeg", ctx["file_extension"])
	assert.Equal(t, "small", ctx["file_size_category"])
}

func TestLookupComponent(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "previewcache", lookupComponent("github.com/tphakala/labelgrid/internal/previewcache.(*Cache).index"))
	assert.Equal(t, "serve", lookupComponent("github.com/tphakala/labelgrid/cmd/serve.Run"))
	assert.Equal(t, ComponentUnknown, lookupComponent("main"))
}

func TestScrubPaths(t *testing.T) {
	t.Parallel()

	got := scrubPaths("open /data/imagenet/ILSVRC/words.txt: permission denied")
	assert.NotContains(t, got, "/data/imagenet")
	assert.Contains(t, got, "[PATH]")
}

func TestGenerateErrorTitle(t *testing.T) {
	t.Parallel()

	ee := New(fmt.Errorf("x")).
		Component("dataset").
		Category(CategoryLookup).
		Context("operation", "scan_labels").
		Build()

	assert.Equal(t, "Dataset Label Lookup Scan Labels", generateErrorTitle(ee))
}

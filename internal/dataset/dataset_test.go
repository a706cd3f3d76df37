package dataset

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/labelgrid/internal/conf"
	"github.com/tphakala/labelgrid/internal/errors"
)

// tinyTree builds a Tiny ImageNet tree: files maps label id to image count.
func tinyTree(t *testing.T, root, words string, files map[string]int) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, filepath.Join(root, "words.txt"), []byte(words), 0o644))
	for id, n := range files {
		dir := filepath.Join(root, "train", id, "images")
		require.NoError(t, fs.MkdirAll(dir, 0o755))
		for i := range n {
			name := filepath.Join(dir, fmt.Sprintf("%s_%d.JPEG", id, i))
			require.NoError(t, afero.WriteFile(fs, name, []byte("jpeg"), 0o644))
		}
		// boxes file sits next to images in the real dataset
		require.NoError(t, afero.WriteFile(fs, filepath.Join(root, "train", id, id+"_boxes.txt"), nil, 0o644))
	}
	return fs
}

func TestIndexCatDogExample(t *testing.T) {
	t.Parallel()

	fs := tinyTree(t, "/data/tiny", "n001\tcat\nn002\tdog\n", map[string]int{"n001": 3, "n002": 1})

	items, labels, err := Index(fs, "/data/tiny", 2, TinyLayout, Observed)
	require.NoError(t, err)

	require.Len(t, items, 3)
	assert.Equal(t, LabelTable{{"n001", "cat"}, {"n002", "dog"}}, labels)
	assert.Equal(t, ItemEntry{
		ItemID:    "n001_0",
		ItemPath:  "/data/tiny/train/n001/images/n001_0.JPEG",
		LabelID:   "n001",
		LabelName: "cat",
	}, items[0])

	page, err := SelectPage(items, labels, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"/data/tiny/train/n002/images/n002_0.JPEG"}, page.Paths)
	assert.Equal(t, []string{"dog"}, page.Names)
	assert.Equal(t, "n002", page.LabelID)
}

func TestIndexSampleCap(t *testing.T) {
	t.Parallel()

	fs := tinyTree(t, "/d", "n01\ta\nn02\tb\nn03\tc\n", map[string]int{"n01": 7, "n02": 2, "n03": 5})

	for _, k := range []int{0, 1, 3, 5, 10} {
		items, labels, err := Index(fs, "/d", k, TinyLayout, Observed)
		require.NoError(t, err)

		for _, c := range LabelCounts(items) {
			assert.LessOrEqual(t, c.Count, k, "label %s with k=%d", c.LabelID, k)
		}
		if k == 0 {
			assert.Empty(t, items)
			assert.Empty(t, labels)
		}
	}
}

func TestIndexNegativeSample(t *testing.T) {
	t.Parallel()

	fs := tinyTree(t, "/d", "n01\ta\n", map[string]int{"n01": 1})
	_, _, err := Index(fs, "/d", -1, TinyLayout, Observed)
	require.Error(t, err)
	assert.True(t, errors.IsConfigError(err))
}

func TestIndexObservedVersusDeclared(t *testing.T) {
	t.Parallel()

	fs := tinyTree(t, "/d", "n01\ta\nn02\tb\nn03\tc\n", map[string]int{"n03": 2, "n01": 1})

	items, observed, err := Index(fs, "/d", 10, TinyLayout, Observed)
	require.NoError(t, err)
	assert.Equal(t, LabelTable{{"n01", "a"}, {"n03", "c"}}, observed)

	ids := make(map[string]int)
	for _, l := range observed {
		ids[l.LabelID]++
		assert.Positive(t, CountsForLabels(items, LabelTable{l})[0].Count)
	}
	for id, n := range ids {
		assert.Equal(t, 1, n, "label %s listed twice", id)
	}

	_, declared, err := Index(fs, "/d", 10, TinyLayout, Declared)
	require.NoError(t, err)
	assert.Equal(t, LabelTable{{"n01", "a"}, {"n02", "b"}, {"n03", "c"}}, declared)
}

func TestIndexLookupError(t *testing.T) {
	t.Parallel()

	fs := tinyTree(t, "/d", "n01\ta\n", map[string]int{"n01": 1, "n99": 1})

	_, _, err := Index(fs, "/d", 5, TinyLayout, Observed)
	require.Error(t, err)
	assert.True(t, errors.IsLookupError(err))
	assert.Contains(t, err.Error(), `"n99"`)
	assert.Contains(t, err.Error(), "/d/train/n99/images")
}

func TestIndexMissingLabelMap(t *testing.T) {
	t.Parallel()

	_, _, err := Index(afero.NewMemMapFs(), "/nowhere", 5, FullLayout, Observed)
	require.Error(t, err)
	assert.True(t, errors.IsConfigError(err))
}

func TestIndexNoLabelDirs(t *testing.T) {
	t.Parallel()

	fs := tinyTree(t, "/d", "n01\ta\n", nil)
	items, labels, err := Index(fs, "/d", 5, TinyLayout, Observed)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Empty(t, labels)
}

func TestIndexFullLayout(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	root := "/imagenet"
	require.NoError(t, afero.WriteFile(fs, filepath.Join(root, "synset_words.txt"),
		[]byte("n01440764 tench, Tinca tinca\nn01443537 goldfish, Carassius auratus\n"), 0o644))
	train := filepath.Join(root, "ILSVRC", "Data", "CLS-LOC", "train")
	for _, id := range []string{"n01440764", "n01443537"} {
		require.NoError(t, fs.MkdirAll(filepath.Join(train, id), 0o755))
		require.NoError(t, afero.WriteFile(fs, filepath.Join(train, id, id+"_10026.JPEG"), nil, 0o644))
		require.NoError(t, afero.WriteFile(fs, filepath.Join(train, id, "notes.txt"), nil, 0o644))
	}
	// a stray file matching n* is not a label directory
	require.NoError(t, afero.WriteFile(fs, filepath.Join(train, "n_readme"), nil, 0o644))

	items, labels, err := Index(fs, root, 20, FullLayout, Observed)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "tench, Tinca tinca", items[0].LabelName)
	assert.Equal(t, "n01440764_10026", items[0].ItemID)
	assert.Equal(t, "goldfish, Carassius auratus", labels[1].LabelName)
}

func TestIndexIsIdempotent(t *testing.T) {
	t.Parallel()

	fs := tinyTree(t, "/d", "n01\ta\nn02\tb\n", map[string]int{"n01": 4, "n02": 4})

	first, _, err := Index(fs, "/d", 3, TinyLayout, Observed)
	require.NoError(t, err)
	second, _, err := Index(fs, "/d", 3, TinyLayout, Observed)
	require.NoError(t, err)

	assert.ElementsMatch(t, first, second)
	assert.Equal(t, SortByPath(first), SortByPath(second))
}

func TestIndexVersion(t *testing.T) {
	t.Parallel()

	fs := tinyTree(t, "/d", "n01\ta\n", map[string]int{"n01": 2})
	roots := conf.RootDirs{conf.VersionTiny: "/d"}

	items, _, err := IndexVersion(fs, roots, conf.VersionTiny, 10, Observed, true)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, _, err = IndexVersion(fs, roots, conf.VersionFull, 10, Observed, false)
	assert.True(t, errors.IsConfigError(err), "full has no root")

	_, _, err = IndexSettings(fs, &conf.DatasetSettings{Version: "mini", Labelspace: "observed"}, roots)
	assert.True(t, errors.IsUnsupportedVersion(err))

	items, labels, err := IndexSettings(fs, &conf.DatasetSettings{Version: "tiny", Labelspace: "declared", SamplePerLabel: 1}, roots)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Len(t, labels, 1)
}

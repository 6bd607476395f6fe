package converter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func intPtr(n int) *int    { return &n }
func boolPtr(b bool) *bool { return &b }

func TestBuildArgs_Empty(t *testing.T) {
	args, err := BuildArgs(FormatPDF, Options{})
	require.NoError(t, err)
	assert.Empty(t, args)
}

func TestBuildArgs_UnsupportedFormat(t *testing.T) {
	_, err := BuildArgs(Format("docx"), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestBuildArgs_Transpose(t *testing.T) {
	args, err := BuildArgs(FormatPDF, Options{Transpose: intPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, []string{"--transpose", "2"}, args)

	args, err = BuildArgs(FormatPDF, Options{Transpose: intPtr(-5)})
	require.NoError(t, err)
	assert.Equal(t, []string{"--transpose", "-5"}, args)
}

func TestBuildArgs_MetaInsertionOrder(t *testing.T) {
	opts := Options{Meta: []MetaEntry{
		{Key: "title", Value: "X"},
		{Key: "artist", Value: "Y"},
	}}

	args, err := BuildArgs(FormatPDF, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"--meta", "title=X", "--meta", "artist=Y"}, args)
}

func TestBuildArgs_Configs(t *testing.T) {
	args, err := BuildArgs(FormatHTML, Options{Configs: []string{"ukulele", "modern3"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"--config", "ukulele", "--config", "modern3"}, args)
}

func TestBuildArgs_Diagrams(t *testing.T) {
	args, err := BuildArgs(FormatPDF, Options{Diagrams: boolPtr(true)})
	require.NoError(t, err)
	assert.Equal(t, []string{"--diagrams"}, args)

	args, err = BuildArgs(FormatPDF, Options{Diagrams: boolPtr(false)})
	require.NoError(t, err)
	assert.Equal(t, []string{"--no-diagrams"}, args)
}

func TestBuildArgs_FullOrdering(t *testing.T) {
	opts := Options{
		Transpose: intPtr(3),
		Meta: []MetaEntry{
			{Key: "title", Value: "Song"},
			{Key: "artist", Value: "Band"},
		},
		Diagrams: boolPtr(false),
		Configs:  []string{"ukulele", "modern3"},
	}

	args, err := BuildArgs(FormatText, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"--transpose", "3",
		"--meta", "title=Song",
		"--meta", "artist=Band",
		"--config", "ukulele",
		"--config", "modern3",
		"--no-diagrams",
	}, args)
}

func TestBuildArgs_DeterministicProperty(t *testing.T) {
	formats := []Format{FormatPDF, FormatText, FormatCho, FormatHTML}

	rapid.Check(t, func(t *rapid.T) {
		opts := Options{}
		if rapid.Bool().Draw(t, "hasTranspose") {
			opts.Transpose = intPtr(rapid.IntRange(-11, 11).Draw(t, "transpose"))
		}
		if rapid.Bool().Draw(t, "hasDiagrams") {
			opts.Diagrams = boolPtr(rapid.Bool().Draw(t, "diagrams"))
		}
		keys := rapid.SliceOfN(rapid.StringMatching(`[a-z]{1,8}`), 0, 5).Draw(t, "metaKeys")
		for _, k := range keys {
			opts.Meta = append(opts.Meta, MetaEntry{Key: k, Value: rapid.StringMatching(`[A-Za-z0-9 ]{0,12}`).Draw(t, "metaValue")})
		}
		opts.Configs = rapid.SliceOfN(rapid.StringMatching(`[a-z0-9]{1,10}`), 0, 4).Draw(t, "configs")

		format := rapid.SampledFrom(formats).Draw(t, "format")

		first, err := BuildArgs(format, opts)
		if err != nil {
			t.Fatalf("BuildArgs failed: %v", err)
		}
		second, err := BuildArgs(format, opts)
		if err != nil {
			t.Fatalf("BuildArgs failed on repeat: %v", err)
		}

		if len(first) != len(second) {
			t.Fatalf("token count changed between builds: %d vs %d", len(first), len(second))
		}
		for i := range first {
			if first[i] != second[i] {
				t.Errorf("token %d changed between builds: %q vs %q", i, first[i], second[i])
			}
		}
	})
}

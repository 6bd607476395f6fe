package converter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeOptions(t *testing.T, raw string) (Options, error) {
	t.Helper()
	var opts Options
	err := json.Unmarshal([]byte(raw), &opts)
	return opts, err
}

func TestOptions_Transpose(t *testing.T) {
	opts, err := decodeOptions(t, `{"transpose": 2}`)
	require.NoError(t, err)
	require.NotNil(t, opts.Transpose)
	assert.Equal(t, 2, *opts.Transpose)

	opts, err = decodeOptions(t, `{"transpose": -3}`)
	require.NoError(t, err)
	assert.Equal(t, -3, *opts.Transpose)
}

func TestOptions_TransposeRejectsNonInteger(t *testing.T) {
	for _, raw := range []string{`{"transpose": 2.5}`, `{"transpose": "2"}`, `{"transpose": true}`} {
		_, err := decodeOptions(t, raw)
		require.Error(t, err, raw)

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "transpose", verr.Field)
		assert.True(t, IsValidation(err))
	}
}

func TestOptions_MetaPreservesInsertionOrder(t *testing.T) {
	opts, err := decodeOptions(t, `{"meta": {"title": "X", "artist": "Y", "album": "Z"}}`)
	require.NoError(t, err)

	require.Len(t, opts.Meta, 3)
	assert.Equal(t, MetaEntry{Key: "title", Value: "X"}, opts.Meta[0])
	assert.Equal(t, MetaEntry{Key: "artist", Value: "Y"}, opts.Meta[1])
	assert.Equal(t, MetaEntry{Key: "album", Value: "Z"}, opts.Meta[2])
}

func TestOptions_MetaRejectsNonObject(t *testing.T) {
	_, err := decodeOptions(t, `{"meta": "title=X"}`)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "meta", verr.Field)
}

func TestOptions_MetaRejectsNonStringValues(t *testing.T) {
	_, err := decodeOptions(t, `{"meta": {"year": 1999}}`)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "meta", verr.Field)
}

func TestOptions_Diagrams(t *testing.T) {
	opts, err := decodeOptions(t, `{"diagrams": true}`)
	require.NoError(t, err)
	require.NotNil(t, opts.Diagrams)
	assert.True(t, *opts.Diagrams)

	opts, err = decodeOptions(t, `{"diagrams": false}`)
	require.NoError(t, err)
	assert.False(t, *opts.Diagrams)

	opts, err = decodeOptions(t, `{}`)
	require.NoError(t, err)
	assert.Nil(t, opts.Diagrams)
}

func TestOptions_DiagramsRejectsNonBoolean(t *testing.T) {
	_, err := decodeOptions(t, `{"diagrams": "yes"}`)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "diagrams", verr.Field)
}

func TestOptions_ConfigString(t *testing.T) {
	opts, err := decodeOptions(t, `{"config": "solo"}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"solo"}, opts.Configs)
}

func TestOptions_ConfigCommaChain(t *testing.T) {
	opts, err := decodeOptions(t, `{"config": "ukulele, modern3"}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"ukulele", "modern3"}, opts.Configs)
}

func TestOptions_ConfigArray(t *testing.T) {
	opts, err := decodeOptions(t, `{"config": ["a", "b"]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, opts.Configs)
}

func TestOptions_ConfigScalarFallback(t *testing.T) {
	// Non-string scalars pass through stringified. Permissive fallback,
	// not a documented contract.
	opts, err := decodeOptions(t, `{"config": 42}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"42"}, opts.Configs)

	opts, err = decodeOptions(t, `{"config": true}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"true"}, opts.Configs)
}

func TestOptions_ConfigRejectsNull(t *testing.T) {
	_, err := decodeOptions(t, `{"config": null}`)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "config", verr.Field)
}

func TestOptions_ConfigRejectsObject(t *testing.T) {
	_, err := decodeOptions(t, `{"config": {"name": "ukulele"}}`)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "config", verr.Field)
}

func TestOptions_ConfigRejectsMixedArray(t *testing.T) {
	_, err := decodeOptions(t, `{"config": ["a", 7]}`)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "config", verr.Field)
}

func TestOptions_UnknownKeysIgnored(t *testing.T) {
	opts, err := decodeOptions(t, `{"transpose": 1, "no_such_option": "x"}`)
	require.NoError(t, err)
	require.NotNil(t, opts.Transpose)
	assert.Equal(t, 1, *opts.Transpose)
}

func TestSplitConfigs(t *testing.T) {
	assert.Equal(t, []string{"ukulele", "modern3"}, SplitConfigs("ukulele, modern3"))
	assert.Equal(t, []string{"solo"}, SplitConfigs("solo"))
	assert.Equal(t, []string{"a", "b", "c"}, SplitConfigs(" a ,b, c "))
	assert.Nil(t, SplitConfigs(""))
	assert.Nil(t, SplitConfigs(" , ,"))
}

func TestFormat(t *testing.T) {
	assert.True(t, FormatPDF.Valid())
	assert.True(t, FormatCho.Valid())
	assert.False(t, Format("docx").Valid())

	assert.Equal(t, "application/pdf", FormatPDF.ContentType())
	assert.Equal(t, "text/plain", FormatText.ContentType())
	assert.Equal(t, "text/plain", FormatCho.ContentType())
	assert.Equal(t, "text/html", FormatHTML.ContentType())
	assert.Equal(t, "application/octet-stream", Format("docx").ContentType())
}

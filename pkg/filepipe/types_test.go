package filepipe_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/origenstudio/filepipe/pkg/filepipe"
)

func TestAspectRatio(t *testing.T) {
	assert.InDelta(t, 4.0/3.0, filepipe.Dimensions{Width: 800, Height: 600}.AspectRatio(), 1e-9)
	assert.Equal(t, 1.0, filepipe.Dimensions{Width: 100, Height: 100}.AspectRatio())
}

func TestAssetVersionLookup(t *testing.T) {
	asset := &filepipe.Asset{
		Versions: map[string]filepipe.VersionRecord{
			"thumb": {Name: "photo-thumb", Version: "thumb"},
		},
	}

	rec, err := asset.Version("thumb")
	require.NoError(t, err)
	assert.Equal(t, "photo-thumb", rec.Name)

	_, err = asset.Version("huge")
	assert.ErrorIs(t, err, filepipe.ErrVersionNotFound)

	_, err = (&filepipe.Asset{}).Version("thumb")
	assert.ErrorIs(t, err, filepipe.ErrVersionNotFound)
}

func TestVersionRecordUploadedFlagFieldName(t *testing.T) {
	data, err := json.Marshal(filepipe.VersionRecord{Version: "thumb", Uploaded: true})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, true, raw["uploaded_to_3rd_party"])
}

package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalMetaNil(t *testing.T) {
	b, err := marshalMeta(nil)
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestMetaRoundTrip(t *testing.T) {
	meta := map[string]any{"pump_percent": 61.5, "window_size": 14.0}
	b, err := marshalMeta(meta)
	require.NoError(t, err)

	got := unmarshalMeta(b)
	assert.Equal(t, 61.5, got["pump_percent"])
	assert.Equal(t, 14.0, got["window_size"])
}

func TestUnmarshalMetaTolerant(t *testing.T) {
	assert.Nil(t, unmarshalMeta(nil))
	assert.Nil(t, unmarshalMeta([]byte{}))
	assert.Nil(t, unmarshalMeta([]byte("not json")))
}

func TestUpperAll(t *testing.T) {
	assert.Equal(t, []string{"BTC", "ETH"}, upperAll([]string{"btc", "Eth"}))
	assert.Empty(t, upperAll(nil))
}

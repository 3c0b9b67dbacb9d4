package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlag_Unmarshal(t *testing.T) {
	tests := []struct {
		in   string
		want Flag
	}{
		{`1`, true},
		{`0`, false},
		{`true`, true},
		{`false`, false},
		{`null`, false},
		{`2`, true},
	}
	for _, tt := range tests {
		var f Flag
		if err := json.Unmarshal([]byte(tt.in), &f); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.in, err)
		}
		if f != tt.want {
			t.Errorf("unmarshal %s = %v, want %v", tt.in, f, tt.want)
		}
	}

	var f Flag
	if err := json.Unmarshal([]byte(`"yes"`), &f); err == nil {
		t.Error("expected error for string flag")
	}
}

func TestFlag_MarshalAsNumber(t *testing.T) {
	b, err := json.Marshal(struct {
		On  Flag `json:"on"`
		Off Flag `json:"off"`
	}{On: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"on":1,"off":0}`, string(b))
}

func TestProduct_Decode(t *testing.T) {
	body := `{
		"id": "-Nabc",
		"title": "Cat tower",
		"category": "furniture",
		"origin_price": 1200,
		"price": 990.5,
		"unit": "piece",
		"description": "Three levels",
		"content": "Wood",
		"is_enabled": 1,
		"imageUrl": "https://img.example.com/a.jpg",
		"imagesUrl": ["https://img.example.com/b.jpg", ""]
	}`
	var p Product
	require.NoError(t, json.Unmarshal([]byte(body), &p))

	assert.Equal(t, "-Nabc", p.ID)
	assert.Equal(t, 990.5, p.Price)
	assert.True(t, bool(p.IsEnabled))
	assert.Equal(t, []string{"https://img.example.com/b.jpg"}, p.GalleryImages())
}

func TestProduct_CloneIsIndependent(t *testing.T) {
	p := Product{ImagesURL: []string{"a", "b"}}
	c := p.Clone()
	c.ImagesURL[0] = "z"
	assert.Equal(t, "a", p.ImagesURL[0])

	assert.Nil(t, Product{}.Clone().ImagesURL)
	assert.Empty(t, Product{}.GalleryImages())
}

func TestProductPayload_Marshal(t *testing.T) {
	b, err := json.Marshal(ProductPayload{Title: "x", IsEnabled: 1, OriginPrice: 100, Price: 80})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	_, hasID := got["id"]
	assert.False(t, hasID, "empty id is omitted")
	assert.Equal(t, []any{}, got["imagesUrl"])
	assert.Equal(t, float64(1), got["is_enabled"])
	assert.Equal(t, float64(80), got["price"])
}

func TestSession_Valid(t *testing.T) {
	now := time.Now()
	assert.True(t, Session{Token: "t", Expiry: now.Add(time.Minute)}.Valid(now))
	assert.False(t, Session{Token: "t", Expiry: now}.Valid(now))
	assert.False(t, Session{Expiry: now.Add(time.Minute)}.Valid(now))
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "100", FormatPrice(100))
	assert.Equal(t, "99.5", FormatPrice(99.5))
	assert.Equal(t, "0", FormatPrice(0))
}

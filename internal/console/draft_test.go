package console

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/CatalogAdmin/internal/models"
)

func TestDraftFrom_DoesNotShareImages(t *testing.T) {
	p := sampleProducts()[0]
	d := DraftFrom(p)
	require.NoError(t, d.SetImageAt(0, "changed"))

	assert.Equal(t, "https://img.example.com/t1.jpg", p.ImagesURL[0])
	assert.Equal(t, "1200", d.OriginPrice)
	assert.Equal(t, "990", d.Price)
	assert.True(t, d.IsEnabled)
}

func TestDraftFrom_EmptyGalleryGetsOneSlot(t *testing.T) {
	d := DraftFrom(models.Product{ID: "x"})
	assert.Equal(t, []string{""}, d.ImagesURL)
}

func TestDraftFrom_TruncatesLongGallery(t *testing.T) {
	d := DraftFrom(models.Product{ImagesURL: []string{"1", "2", "3", "4", "5", "6", "7"}})
	assert.Len(t, d.ImagesURL, MaxImageSlots)
}

func TestDraft_ImageSlots(t *testing.T) {
	d := BlankDraft()

	assert.False(t, d.AddImageSlot(), "last slot is empty")
	assert.False(t, d.RemoveLastImageSlot(), "never below one slot")

	for i := 0; i < MaxImageSlots-1; i++ {
		require.NoError(t, d.SetImageAt(i, "https://img.example.com/x.jpg"))
		require.True(t, d.AddImageSlot())
	}
	require.Len(t, d.ImagesURL, MaxImageSlots)
	require.NoError(t, d.SetImageAt(MaxImageSlots-1, "https://img.example.com/y.jpg"))
	assert.False(t, d.CanAddImageSlot())
	assert.False(t, d.AddImageSlot())

	for d.RemoveLastImageSlot() {
	}
	assert.Len(t, d.ImagesURL, 1)

	assert.ErrorIs(t, d.SetImageAt(3, "x"), ErrSlotOutOfRange)
	assert.ErrorIs(t, d.SetImageAt(-1, "x"), ErrSlotOutOfRange)
}

func TestDraft_SetField(t *testing.T) {
	var d Draft
	require.NoError(t, d.SetField(FieldDescription, "desc"))
	require.NoError(t, d.SetField(FieldImageURL, "https://img.example.com/main.jpg"))
	assert.Equal(t, "desc", d.Description)
	assert.Equal(t, "https://img.example.com/main.jpg", d.ImageURL)

	for _, v := range []string{"on", "true", "1", "YES"} {
		require.NoError(t, d.SetField(FieldIsEnabled, v))
		assert.True(t, d.IsEnabled, v)
	}
	for _, v := range []string{"", "off", "0", "false"} {
		require.NoError(t, d.SetField(FieldIsEnabled, v))
		assert.False(t, d.IsEnabled, v)
	}

	assert.ErrorIs(t, d.SetField("weight", "3"), ErrUnknownField)
}

func TestDraft_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *Draft)
		fields []string
	}{
		{name: "complete", mutate: func(*Draft) {}},
		{name: "missing title", mutate: func(d *Draft) { d.Title = "" }, fields: []string{FieldTitle}},
		{name: "missing unit and category", mutate: func(d *Draft) { d.Unit, d.Category = "", "" }, fields: []string{FieldCategory, FieldUnit}},
		{name: "non numeric price", mutate: func(d *Draft) { d.Price = "cheap" }, fields: []string{FieldPrice}},
		{name: "empty origin price", mutate: func(d *Draft) { d.OriginPrice = "" }, fields: []string{FieldOriginPrice}},
		{name: "too many images", mutate: func(d *Draft) { d.ImagesURL = make([]string, 6) }, fields: []string{"imagesUrl"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Draft{Title: "t", Category: "c", Unit: "u", OriginPrice: "10", Price: "9.5", ImagesURL: []string{""}}
			tt.mutate(&d)

			err := d.Validate()
			if len(tt.fields) == 0 {
				require.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Len(t, ve.Fields, len(tt.fields))
			for _, f := range tt.fields {
				assert.Contains(t, ve.Fields, f)
			}
		})
	}
}

func TestDraft_Normalize(t *testing.T) {
	d := Draft{
		ID: "p9", Title: "Bird cage", Category: "housing", Unit: "piece",
		OriginPrice: " 100 ", Price: "80", IsEnabled: true,
		ImagesURL: []string{"", "https://img.example.com/a.jpg"},
	}
	p, err := d.Normalize()
	require.NoError(t, err)

	assert.Equal(t, float64(100), p.OriginPrice)
	assert.Equal(t, float64(80), p.Price)
	assert.Equal(t, 1, p.IsEnabled)
	assert.Equal(t, []string{"", "https://img.example.com/a.jpg"}, p.ImagesURL, "empty slots are sent as they are")

	b, err := json.Marshal(p)
	require.NoError(t, err)
	var wire map[string]any
	require.NoError(t, json.Unmarshal(b, &wire))
	assert.Equal(t, float64(1), wire["is_enabled"])
	assert.Equal(t, float64(100), wire["origin_price"])

	d.IsEnabled = false
	p, err = d.Normalize()
	require.NoError(t, err)
	assert.Equal(t, 0, p.IsEnabled)

	d.Price = "eighty"
	_, err = d.Normalize()
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, FieldPrice)
}

func TestValidationError_Detail(t *testing.T) {
	ve := &ValidationError{Fields: FieldErrors{FieldUnit: "this field is required", FieldPrice: "enter a number"}}
	assert.Equal(t, "price: enter a number; unit: this field is required", ve.Detail())
}

func TestCredentialsValidation(t *testing.T) {
	err := check(models.Credentials{Username: "not-an-email", Password: ""})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "enter a valid e-mail address", ve.Fields["username"])
	assert.Equal(t, "this field is required", ve.Fields["password"])
}

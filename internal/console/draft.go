package console

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/atinyakov/CatalogAdmin/internal/models"
)

// MaxImageSlots is the largest number of secondary image slots a draft may hold.
const MaxImageSlots = 5

// Field names accepted by Draft.SetField. They match the API's JSON keys.
const (
	FieldTitle       = "title"
	FieldCategory    = "category"
	FieldUnit        = "unit"
	FieldOriginPrice = "origin_price"
	FieldPrice       = "price"
	FieldDescription = "description"
	FieldContent     = "content"
	FieldImageURL    = "imageUrl"
	FieldIsEnabled   = "is_enabled"
)

// Draft is the product form in progress. Prices stay text until Normalize so
// that whatever the user typed survives a failed submission.
type Draft struct {
	ID          string   `json:"id,omitempty"`
	Title       string   `json:"title" validate:"required"`
	Category    string   `json:"category" validate:"required"`
	Unit        string   `json:"unit" validate:"required"`
	OriginPrice string   `json:"origin_price" validate:"required,numeric"`
	Price       string   `json:"price" validate:"required,numeric"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	ImageURL    string   `json:"imageUrl"`
	ImagesURL   []string `json:"imagesUrl" validate:"min=1,max=5"`
	IsEnabled   bool     `json:"is_enabled"`
}

// BlankDraft is the create-mode template: one empty image slot, disabled.
func BlankDraft() Draft {
	return Draft{ImagesURL: []string{""}}
}

// DraftFrom copies p into a new draft. The image list is copied, never shared.
func DraftFrom(p models.Product) Draft {
	d := Draft{
		ID:          p.ID,
		Title:       p.Title,
		Category:    p.Category,
		Unit:        p.Unit,
		OriginPrice: models.FormatPrice(p.OriginPrice),
		Price:       models.FormatPrice(p.Price),
		Description: p.Description,
		Content:     p.Content,
		ImageURL:    p.ImageURL,
		ImagesURL:   append([]string(nil), p.ImagesURL...),
		IsEnabled:   bool(p.IsEnabled),
	}
	if len(d.ImagesURL) > MaxImageSlots {
		d.ImagesURL = d.ImagesURL[:MaxImageSlots]
	}
	if len(d.ImagesURL) == 0 {
		d.ImagesURL = []string{""}
	}
	return d
}

// Clone returns a deep copy of d.
func (d Draft) Clone() Draft {
	c := d
	c.ImagesURL = append([]string(nil), d.ImagesURL...)
	return c
}

// SetField stores value under name. The checkbox field keeps a bool; all
// other fields keep the raw text.
func (d *Draft) SetField(name, value string) error {
	switch name {
	case FieldTitle:
		d.Title = value
	case FieldCategory:
		d.Category = value
	case FieldUnit:
		d.Unit = value
	case FieldOriginPrice:
		d.OriginPrice = value
	case FieldPrice:
		d.Price = value
	case FieldDescription:
		d.Description = value
	case FieldContent:
		d.Content = value
	case FieldImageURL:
		d.ImageURL = value
	case FieldIsEnabled:
		d.IsEnabled = checked(value)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return nil
}

// checked interprets a checkbox form value.
func checked(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// SetImageAt replaces the secondary image at index i.
func (d *Draft) SetImageAt(i int, value string) error {
	if i < 0 || i >= len(d.ImagesURL) {
		return fmt.Errorf("%w: %d", ErrSlotOutOfRange, i)
	}
	d.ImagesURL[i] = value
	return nil
}

// CanAddImageSlot reports whether AddImageSlot would append a slot.
func (d *Draft) CanAddImageSlot() bool {
	n := len(d.ImagesURL)
	return n > 0 && n < MaxImageSlots && d.ImagesURL[n-1] != ""
}

// AddImageSlot appends an empty slot when the last one is filled and the
// list is not full. It reports whether a slot was added.
func (d *Draft) AddImageSlot() bool {
	if !d.CanAddImageSlot() {
		return false
	}
	d.ImagesURL = append(d.ImagesURL, "")
	return true
}

// CanRemoveImageSlot reports whether RemoveLastImageSlot would remove a slot.
func (d *Draft) CanRemoveImageSlot() bool {
	return len(d.ImagesURL) > 1
}

// RemoveLastImageSlot drops the last slot, never going below one.
func (d *Draft) RemoveLastImageSlot() bool {
	if !d.CanRemoveImageSlot() {
		return false
	}
	d.ImagesURL = d.ImagesURL[:len(d.ImagesURL)-1]
	return true
}

// Validate applies the form's native constraints.
func (d Draft) Validate() error {
	return check(d)
}

// Normalize converts the draft into the API payload: prices become numbers
// and the enabled flag becomes 0 or 1.
func (d Draft) Normalize() (models.ProductPayload, error) {
	origin, err := strconv.ParseFloat(strings.TrimSpace(d.OriginPrice), 64)
	if err != nil {
		return models.ProductPayload{}, &ValidationError{Fields: FieldErrors{FieldOriginPrice: messageForTag("numeric", "")}}
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(d.Price), 64)
	if err != nil {
		return models.ProductPayload{}, &ValidationError{Fields: FieldErrors{FieldPrice: messageForTag("numeric", "")}}
	}

	enabled := 0
	if d.IsEnabled {
		enabled = 1
	}

	return models.ProductPayload{
		ID:          d.ID,
		Title:       d.Title,
		Category:    d.Category,
		Description: d.Description,
		Content:     d.Content,
		ImageURL:    d.ImageURL,
		ImagesURL:   append([]string(nil), d.ImagesURL...),
		IsEnabled:   enabled,
		OriginPrice: origin,
		Price:       price,
		Unit:        d.Unit,
	}, nil
}

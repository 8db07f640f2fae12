package person

import (
	"fmt"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
)

// Validate checks the fields the mapping depends on.
func (r Raw) Validate() error {
	if strings.TrimSpace(r.Name.First) == "" && strings.TrimSpace(r.Name.Last) == "" {
		return fmt.Errorf("%w: record has no name", ErrInvalidArgument)
	}

	if r.DOB.Age < 0 {
		return fmt.Errorf("%w: negative age %d", ErrInvalidArgument, r.DOB.Age)
	}

	return nil
}

// FromRaw maps a provider record to a Record with the given code.
func FromRaw(raw Raw, code int) Record {
	id := NoID
	if raw.ID.Value != nil && strings.TrimSpace(*raw.ID.Value) != "" {
		id = *raw.ID.Value
	}

	name := strings.TrimSpace(raw.Name.First + " " + raw.Name.Last)
	location := fmt.Sprintf("%s, %s - %s", raw.Location.City, raw.Location.State, raw.Location.Country)

	return Record{
		Code:     code,
		ID:       id,
		Name:     name,
		Email:    raw.Email,
		Phone:    raw.Phone,
		Cell:     raw.Cell,
		Location: location,
		Age:      raw.DOB.Age,
		Picture:  raw.Picture.Large,
	}
}

func (r Record) String() string {
	return fmt.Sprintf("Code: %d | ID: %s\n%s, %d years - %s\nContact: %s, Tel: %s / %s\nPicture: %s\n",
		r.Code, r.ID, r.Name, r.Age, r.Location, r.Email, r.Phone, r.Cell, r.Picture)
}

// Validate rejects datasets that could not have come from a build: non-positive
// or duplicate codes, negative ages.
func (d Dataset) Validate() error {
	seen := roaring.New()

	for i, r := range d {
		if r.Code <= 0 || int64(r.Code) > int64(^uint32(0)) {
			return fmt.Errorf("%w: record %d has invalid code %d", ErrCorruptData, i, r.Code)
		}

		if !seen.CheckedAdd(uint32(r.Code)) {
			return fmt.Errorf("%w: duplicate code %d", ErrCorruptData, r.Code)
		}

		if r.Age < 0 {
			return fmt.Errorf("%w: record %d has negative age", ErrCorruptData, r.Code)
		}
	}

	return nil
}

// Contiguous reports whether the codes are exactly 1..len(d) in order.
func (d Dataset) Contiguous() bool {
	for i, r := range d {
		if r.Code != i+1 {
			return false
		}
	}
	return true
}

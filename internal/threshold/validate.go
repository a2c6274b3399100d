package threshold

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvertedBand rejects bands where upper <= lower.
	ErrInvertedBand = errors.New("threshold: upper bound must be greater than lower bound")
	// ErrDuplicateDevice rejects adding a device name that already exists.
	ErrDuplicateDevice = errors.New("threshold: device already exists")
	// ErrNonNumeric rejects bounds that do not parse as decimals.
	ErrNonNumeric = errors.New("threshold: value is not numeric")
	// ErrReservedName rejects user devices named after the general cutoff.
	ErrReservedName = errors.New("threshold: device name is reserved")
	// ErrUnknownDevice rejects edits to devices that are not configured.
	ErrUnknownDevice = errors.New("threshold: no such device")
)

// ParseBand validates user-supplied bounds and returns a normalized band.
// Values are rounded to one decimal place before the inversion check, so the
// persisted configuration is always in display precision. A comma decimal
// separator is accepted, matching the input convention of the settings UI.
func ParseBand(lower, upper string) (Band, error) {
	lo, err := parseBound(lower)
	if err != nil {
		return Band{}, fmt.Errorf("lower bound %q: %w", lower, ErrNonNumeric)
	}
	hi, err := parseBound(upper)
	if err != nil {
		return Band{}, fmt.Errorf("upper bound %q: %w", upper, ErrNonNumeric)
	}

	band := Band{Lower: lo.Round(1), Upper: hi.Round(1)}
	if !band.Valid() {
		return Band{}, ErrInvertedBand
	}
	return band, nil
}

// ParseCutoff validates the general scalar threshold.
func ParseCutoff(value string) (Scalar, error) {
	v, err := parseBound(value)
	if err != nil {
		return Scalar{}, fmt.Errorf("cutoff %q: %w", value, ErrNonNumeric)
	}
	return Scalar{Cutoff: v.Round(1)}, nil
}

func parseBound(raw string) (decimal.Decimal, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if cleaned == "" {
		return decimal.Decimal{}, ErrNonNumeric
	}
	return decimal.NewFromString(cleaned)
}

// AddDevice inserts a new banded device. The general entry name is reserved.
func (s *LimitSet) AddDevice(name string, band Band) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: empty device name", ErrNonNumeric)
	}
	if name == GeneralDevice {
		return ErrReservedName
	}
	if !band.Valid() {
		return ErrInvertedBand
	}
	if _, exists := s.Limits[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateDevice, name)
	}

	if s.Limits == nil {
		s.Limits = make(LimitMap)
	}
	s.Limits[name] = band
	s.Visible = append(s.Visible, name)
	return nil
}

// UpdateDevice replaces the band of an existing device.
func (s *LimitSet) UpdateDevice(name string, band Band) error {
	if !band.Valid() {
		return ErrInvertedBand
	}
	entry, exists := s.Limits[name]
	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownDevice, name)
	}
	if _, isBand := entry.(Band); !isBand {
		return fmt.Errorf("%w: %s holds the general cutoff", ErrReservedName, name)
	}
	s.Limits[name] = band
	return nil
}

// SetGeneral replaces the global scalar cutoff.
func (s *LimitSet) SetGeneral(scalar Scalar) {
	if s.Limits == nil {
		s.Limits = make(LimitMap)
	}
	s.Limits[GeneralDevice] = scalar
}

// RemoveDevice deletes a banded device and drops it from the visible list.
// Removing the general cutoff is not allowed.
func (s *LimitSet) RemoveDevice(name string) error {
	if name == GeneralDevice {
		return ErrReservedName
	}
	if _, exists := s.Limits[name]; !exists {
		return fmt.Errorf("%w: %s", ErrUnknownDevice, name)
	}

	delete(s.Limits, name)
	visible := s.Visible[:0]
	for _, d := range s.Visible {
		if d != name {
			visible = append(visible, d)
		}
	}
	s.Visible = visible
	return nil
}

// SetVisible toggles a device's membership in the visible list without
// touching its limits.
func (s *LimitSet) SetVisible(name string, visible bool) error {
	if _, exists := s.Limits[name]; !exists {
		return fmt.Errorf("%w: %s", ErrUnknownDevice, name)
	}

	idx := -1
	for i, d := range s.Visible {
		if d == name {
			idx = i
			break
		}
	}

	if visible && idx < 0 {
		s.Visible = append(s.Visible, name)
	}
	if !visible && idx >= 0 {
		s.Visible = append(s.Visible[:idx], s.Visible[idx+1:]...)
	}
	return nil
}

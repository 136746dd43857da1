package entity

import (
	"fmt"
	"unicode/utf8"

	"nbp-rates-service/internal/apperrors"

	"github.com/google/uuid"
)

type CurrencyCode struct {
	ID      uuid.UUID `db:"id"`
	IsoCode string    `db:"iso_code"`
}

// NewCurrencyCode builds a registry entry for a three letter uppercase ISO 4217 code.
func NewCurrencyCode(code string) (*CurrencyCode, error) {
	if utf8.RuneCountInString(code) != 3 {
		return nil, apperrors.NewDomainError("IsoCode's code must be exactly 3 characters long.")
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return nil, apperrors.NewDomainError("IsoCode's code must be uppercase.")
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate currency code id: %w", err)
	}

	return &CurrencyCode{ID: id, IsoCode: code}, nil
}

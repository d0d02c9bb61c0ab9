package core

import (
	"errors"
	"testing"
)

func TestValidateDictionary(t *testing.T) {
	tests := []struct {
		name    string
		dict    *Dictionary
		wantErr error
	}{
		{"valid", &Dictionary{Name: "disease"}, nil},
		{"valid with limits", &Dictionary{Name: "disease", TokensLenMin: 1, TokensLenMax: 4, Threshold: 0.9}, nil},
		{"nil", nil, ErrInvalidDictionary},
		{"empty name", &Dictionary{}, ErrEmptyDictionaryName},
		{"separator in name", &Dictionary{Name: "a:b"}, ErrInvalidDictionary},
		{"negative length", &Dictionary{Name: "d", TokensLenMin: -1}, ErrInvalidDictionary},
		{"max below min", &Dictionary{Name: "d", TokensLenMin: 3, TokensLenMax: 2}, ErrInvalidDictionary},
		{"threshold above one", &Dictionary{Name: "d", Threshold: 1.5}, ErrInvalidDictionary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDictionary(tt.dict)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDictionary() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDictionary() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateEntry(t *testing.T) {
	tests := []struct {
		name    string
		entry   *Entry
		wantErr error
	}{
		{
			name:  "valid entry",
			entry: &Entry{Dictionary: "disease", Label: "fever", Identifier: "HP:0001945"},
		},
		{
			name:  "valid entry without norm2",
			entry: &Entry{Dictionary: "disease", Label: "the", Identifier: "X", Norm1: "the"},
		},
		{
			name:    "nil entry",
			wantErr: ErrInvalidEntry,
		},
		{
			name:    "blank label",
			entry:   &Entry{Dictionary: "disease", Label: "  ", Identifier: "X"},
			wantErr: ErrEmptyLabel,
		},
		{
			name:    "missing identifier",
			entry:   &Entry{Dictionary: "disease", Label: "fever"},
			wantErr: ErrEmptyIdentifier,
		},
		{
			name:    "missing dictionary",
			entry:   &Entry{Label: "fever", Identifier: "X"},
			wantErr: ErrEmptyDictionaryName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEntry(tt.entry)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateEntry() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateEntry() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidEntry) {
				t.Errorf("ValidateEntry() error = %v, should wrap ErrInvalidEntry", err)
			}
		})
	}
}

func TestValidatePattern(t *testing.T) {
	valid := &Pattern{Dictionary: "taxon", Expression: `E\. ?coli`, Identifier: "NCBITaxon:562"}
	if err := ValidatePattern(valid); err != nil {
		t.Errorf("ValidatePattern() unexpected error: %v", err)
	}

	if err := ValidatePattern(&Pattern{Dictionary: "taxon", Identifier: "X"}); !errors.Is(err, ErrEmptyExpression) {
		t.Errorf("ValidatePattern() error = %v, want ErrEmptyExpression", err)
	}

	if err := ValidatePattern(nil); !errors.Is(err, ErrInvalidPattern) {
		t.Errorf("ValidatePattern(nil) error = %v, want ErrInvalidPattern", err)
	}
}

func TestValidateTexts(t *testing.T) {
	if err := ValidateTexts([]string{"fever"}); err != nil {
		t.Errorf("ValidateTexts() unexpected error: %v", err)
	}
	if err := ValidateTexts(nil); !errors.Is(err, ErrNoTexts) {
		t.Errorf("ValidateTexts(nil) error = %v, want ErrNoTexts", err)
	}
	if err := ValidateTexts([]string{"fever", " "}); !errors.Is(err, ErrEmptyText) {
		t.Errorf("ValidateTexts() error = %v, want ErrEmptyText", err)
	}
}

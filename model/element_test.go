package model

import "testing"

func TestElementTypeValid(t *testing.T) {
	valid := []ElementType{
		ElementSignature, ElementDate, ElementText, ElementCheckbox,
		ElementName, ElementEmail, ElementAddress, ElementTitle,
	}
	for _, et := range valid {
		if !et.Valid() {
			t.Errorf("Expected %q to be valid", et)
		}
	}

	invalid := []ElementType{"", "stamp", "Signature", "initials"}
	for _, et := range invalid {
		if et.Valid() {
			t.Errorf("Expected %q to be invalid", et)
		}
	}
}

package models

import (
	"testing"
)

func TestMapNewContacts_BlankRowsDropped(t *testing.T) {
	input := []*NewClientContact{
		{Type: ContactTypePhone, Value: "   "},
		{Type: ContactTypeEmail, Value: ""},
		{Type: ContactTypeEmail, Value: "shop@example.com"},
	}

	contacts, err := mapNewContacts(input, 4)
	if err != nil {
		t.Fatalf("mapNewContacts: %v", err)
	}
	if len(contacts) != 1 {
		t.Fatalf("expected blank rows dropped, got %d contacts", len(contacts))
	}
	if contacts[0].ClientId != 4 || contacts[0].Value != "shop@example.com" {
		t.Fatalf("unexpected contact: %+v", contacts[0])
	}
}

func TestMapNewContacts_TrimsValues(t *testing.T) {
	input := []*NewClientContact{
		{Type: ContactTypeEmail, Value: "  shop@example.com  "},
	}
	contacts, err := mapNewContacts(input, 1)
	if err != nil {
		t.Fatalf("mapNewContacts: %v", err)
	}
	if contacts[0].Value != "shop@example.com" {
		t.Fatalf("expected trimmed value, got %q", contacts[0].Value)
	}
}

func TestMapNewContacts_InvalidEmailRejected(t *testing.T) {
	input := []*NewClientContact{
		{Type: ContactTypeEmail, Value: "not-an-email"},
	}
	if _, err := mapNewContacts(input, 1); !IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMapNewContacts_InvalidTypeRejected(t *testing.T) {
	input := []*NewClientContact{
		{Type: ContactType("fax"), Value: "12345"},
	}
	if _, err := mapNewContacts(input, 1); !IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMapNewContacts_KeepsIdsForDiffUpsert(t *testing.T) {
	input := []*NewClientContact{
		{HasId: HasId{ID: 12}, Type: ContactTypeEmail, Value: "a@b.co"},
		{Type: ContactTypeEmail, Value: "c@d.co"},
	}
	contacts, err := mapNewContacts(input, 1)
	if err != nil {
		t.Fatalf("mapNewContacts: %v", err)
	}
	if contacts[0].GetId() != 12 || contacts[1].GetId() != 0 {
		t.Fatalf("ids must survive mapping: %+v", contacts)
	}
}

package wireschema

import "testing"

func TestValidateEventDraftAcceptsWellFormed(t *testing.T) {
	data := []byte(`{"eventId":"e-1","type":"RunStarted","schemaVersion":"1.0.0","actor":{"actorId":"system"},"payload":{}}`)
	if err := ValidateEventDraft(data); err != nil {
		t.Fatalf("expected valid event draft, got: %v", err)
	}
}

func TestValidateEventDraftRejectsMissingType(t *testing.T) {
	data := []byte(`{"eventId":"e-1","schemaVersion":"1.0.0"}`)
	if err := ValidateEventDraft(data); err == nil {
		t.Fatal("expected error for missing type field")
	}
}

func TestValidateEventDraftRejectsMalformedJSON(t *testing.T) {
	if err := ValidateEventDraft([]byte("not json")); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestValidateReplayBundleAcceptsEmptyObject(t *testing.T) {
	if err := ValidateReplayBundle([]byte(`{}`)); err != nil {
		t.Fatalf("expected empty object to validate, got: %v", err)
	}
}

func TestValidateReplayBundleRejectsNonObject(t *testing.T) {
	if err := ValidateReplayBundle([]byte(`[1,2,3]`)); err == nil {
		t.Fatal("expected error for a non-object bundle")
	}
}

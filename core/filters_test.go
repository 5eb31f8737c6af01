package core

import "testing"

func TestShouldIgnoreDescription(t *testing.T) {
	ignored := []string{
		"MOTION for Leave to Appear Pro Hac Vice",
		"NOTICE of Appearance by Jane Roe",
		"Corporate Disclosure Statement",
		"Certificate of Disclosure",
		"ADD AND TERMINATE ATTORNEYS",
		"Withdrawal of Attorney",
		"Motion to Withdraw as Counsel",
		"Certificate of Service",
		"Proof of Service",
	}
	for _, description := range ignored {
		if !ShouldIgnoreDescription(description) {
			t.Fatalf("expected %q ignored", description)
		}
	}

	posted := []string{
		"MOTION to Dismiss for Lack of Jurisdiction",
		"ORDER granting preliminary injunction",
		"Superseding Indictment",
	}
	for _, description := range posted {
		if ShouldIgnoreDescription(description) {
			t.Fatalf("expected %q posted", description)
		}
	}
}

func TestShouldNotPayForDescription(t *testing.T) {
	skipped := []string{
		"SEALED Document",
		"Motion to Seal Exhibit 4",
		"RESTRICTED access filing",
		"Ex Parte Application",
		"TRANSCRIPT of proceedings",
	}
	for _, description := range skipped {
		if !ShouldNotPayForDescription(description) {
			t.Fatalf("expected %q skipped for purchase", description)
		}
	}

	purchasable := []string{
		"MOTION to Dismiss",
		"Memorandum Opinion",
	}
	for _, description := range purchasable {
		if ShouldNotPayForDescription(description) {
			t.Fatalf("expected %q purchasable", description)
		}
	}
}

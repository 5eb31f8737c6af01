package core

import "regexp"

// Junk docket entries that never warrant a post: routine attorney
// housekeeping and clerk notices that drown out substantive filings.
var doNotPost = regexp.MustCompile(`(?i)` +
	`pro hac vice` +
	`|notice of appearance` +
	`|certificate of disclosure` +
	`|corporate disclosure` +
	`|add and terminate attorneys` +
	`|withdraw(al)? (of|as) (attorney|counsel)` +
	`|(certificate|proof) of service`)

// Entries never worth paying for even with an active sponsorship: sealed
// or restricted material is not downloadable, transcripts are charged at
// uncapped rates.
var doNotPay = regexp.MustCompile(`(?i)` +
	`seal(ed)?` +
	`|restricted` +
	`|ex parte` +
	`|transcript`)

// ShouldIgnoreDescription reports whether a docket entry is junk.
func ShouldIgnoreDescription(description string) bool {
	return doNotPost.MatchString(description)
}

// ShouldNotPayForDescription reports whether a purchase must be skipped.
func ShouldNotPayForDescription(description string) bool {
	return doNotPay.MatchString(description)
}

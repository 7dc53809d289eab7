// Package validation holds the field-level predicates shared by the profile
// and story handlers. Invalid input is a normal return value, never an error.
package validation

import (
	"regexp"
	"strings"
)

var (
	emailPattern         = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern         = regexp.MustCompile(`^[\+]?[1-9][\d]{0,3}[\s\-\.]?[\d]{1,4}[\s\-\.]?[\d]{1,4}[\s\-\.]?[\d]{1,9}$`)
	nonDigitPattern      = regexp.MustCompile(`\D`)
	namePattern          = regexp.MustCompile(`^[a-zA-Z\s\-']{2,50}$`)
	characterNamePattern = regexp.MustCompile(`^[a-zA-Z0-9\s\-']{1,100}$`)
	titlePattern         = regexp.MustCompile(`^[a-zA-Z0-9\s\-'",.:!?]{1,200}$`)
)

var (
	Roles           = []string{"adult", "child"}
	AgeGroups       = []string{"0-2", "3-6", "5-7", "8-10", "11-12"}
	Relationships   = []string{"parent", "aunt_uncle", "grandparent", "sibling", "cousin", "family_friend", "guardian", "teacher_mentor"}
	CharacterTypes  = []string{"person", "animal", "magical_creature"}
	CharacterStyles = []string{"3d", "cartoon", "anime"}
	StoryWorlds     = []string{"forest", "space", "underwater"}
	AdventureTypes  = []string{"treasure_hunt", "helping_friend"}
	StoryStatuses   = []string{"draft", "processing_character", "extracting_features", "generating_scenes", "generating_story", "completed", "failed"}
)

// Messages returned to clients. Kept here so handlers and composite
// validators agree on wording.
const (
	MsgEmail         = "Invalid email format"
	MsgPhone         = "Invalid phone number format"
	MsgRole          = `Role must be either "adult" or "child"`
	MsgFirstName     = "First name must be 2-50 characters and contain only letters, spaces, hyphens, and apostrophes"
	MsgLastName      = "Last name must be 2-50 characters and contain only letters, spaces, hyphens, and apostrophes"
	MsgAgeGroup      = "Invalid age_group. Must be one of: 0-2, 3-6, 5-7, 8-10, 11-12"
	MsgRelationship  = "Invalid relationship. Must be one of: parent, aunt_uncle, grandparent, sibling, cousin, family_friend, guardian, teacher_mentor"
	MsgCharacterName = "Character name must be 1-100 characters and contain only letters, numbers, spaces, hyphens, and apostrophes"
	MsgCharacterType = "Character type must be one of: person, animal, magical_creature"
	MsgStyle         = "Character style must be one of: 3d, cartoon, anime"
	MsgStoryWorld    = "Story world must be one of: forest, space, underwater"
	MsgAdventureType = "Adventure type must be one of: treasure_hunt, helping_friend"
	MsgStoryTitle    = "Story title must be 1-200 characters and contain only letters, numbers, spaces, and common punctuation"
	MsgStoryStatus   = "Status must be one of: draft, processing_character, extracting_features, generating_scenes, generating_story, completed, failed"
)

// Result is the outcome of a composite validator.
type Result struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

func oneOf(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func Email(email string) bool {
	return emailPattern.MatchString(email)
}

// Phone accepts 10-15 digits once separators are stripped, in a loosely
// international shape.
func Phone(phone string) bool {
	digits := nonDigitPattern.ReplaceAllString(phone, "")
	if len(digits) < 10 || len(digits) > 15 {
		return false
	}
	return phonePattern.MatchString(phone)
}

func Role(role string) bool                   { return oneOf(Roles, role) }
func AgeGroup(ageGroup string) bool           { return oneOf(AgeGroups, ageGroup) }
func Relationship(relationship string) bool   { return oneOf(Relationships, relationship) }
func CharacterType(characterType string) bool { return oneOf(CharacterTypes, characterType) }
func CharacterStyle(style string) bool        { return oneOf(CharacterStyles, style) }
func StoryWorld(world string) bool            { return oneOf(StoryWorlds, world) }
func AdventureType(adventure string) bool     { return oneOf(AdventureTypes, adventure) }
func StoryStatus(status string) bool          { return oneOf(StoryStatuses, status) }

// Name validates first and last names, e.g. O'Connor or Jean-Pierre.
func Name(name string) bool {
	if name == "" {
		return false
	}
	return namePattern.MatchString(strings.TrimSpace(name))
}

// CharacterName allows digits as well, for names like "Bot-3000".
func CharacterName(name string) bool {
	if name == "" {
		return false
	}
	return characterNamePattern.MatchString(strings.TrimSpace(name))
}

func StoryTitle(title string) bool {
	if title == "" {
		return false
	}
	return titlePattern.MatchString(strings.TrimSpace(title))
}

// UserData carries the optional user fields checked by ValidateUserData.
// Empty strings are treated as "not supplied".
type UserData struct {
	Email     string
	Phone     string
	Role      string
	FirstName string
	LastName  string
}

func ValidateUserData(d UserData) Result {
	var errs []string
	if d.Email != "" && !Email(d.Email) {
		errs = append(errs, MsgEmail)
	}
	if d.Phone != "" && !Phone(d.Phone) {
		errs = append(errs, MsgPhone)
	}
	if d.Role != "" && !Role(d.Role) {
		errs = append(errs, MsgRole)
	}
	if d.FirstName != "" && !Name(d.FirstName) {
		errs = append(errs, MsgFirstName)
	}
	if d.LastName != "" && !Name(d.LastName) {
		errs = append(errs, MsgLastName)
	}
	return Result{Valid: len(errs) == 0, Errors: errs}
}

// StoryData carries the optional story fields checked by ValidateStoryData.
type StoryData struct {
	CharacterName  string
	CharacterType  string
	CharacterStyle string
	StoryWorld     string
	AdventureType  string
	StoryTitle     string
	Status         string
}

func ValidateStoryData(d StoryData) Result {
	var errs []string
	if d.CharacterName != "" && !CharacterName(d.CharacterName) {
		errs = append(errs, MsgCharacterName)
	}
	if d.CharacterType != "" && !CharacterType(d.CharacterType) {
		errs = append(errs, MsgCharacterType)
	}
	if d.CharacterStyle != "" && !CharacterStyle(d.CharacterStyle) {
		errs = append(errs, MsgStyle)
	}
	if d.StoryWorld != "" && !StoryWorld(d.StoryWorld) {
		errs = append(errs, MsgStoryWorld)
	}
	if d.AdventureType != "" && !AdventureType(d.AdventureType) {
		errs = append(errs, MsgAdventureType)
	}
	if d.StoryTitle != "" && !StoryTitle(d.StoryTitle) {
		errs = append(errs, MsgStoryTitle)
	}
	if d.Status != "" && !StoryStatus(d.Status) {
		errs = append(errs, MsgStoryStatus)
	}
	return Result{Valid: len(errs) == 0, Errors: errs}
}

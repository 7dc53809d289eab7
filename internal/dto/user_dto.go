package dto

import "github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/models"

// ConsentRequest keeps Consented as a pointer so a missing value can be told
// apart from false.
type ConsentRequest struct {
	Consented *bool `json:"consented"`
}

type ChildRequest struct {
	FirstName    string `json:"first_name"`
	AgeGroup     string `json:"age_group"`
	Relationship string `json:"relationship"`
}

type UserEnvelope struct {
	Message string       `json:"message"`
	User    *models.User `json:"user"`
}

type ChildEnvelope struct {
	Message string               `json:"message"`
	Child   *models.ChildProfile `json:"child"`
}

type ChildrenResponse struct {
	Message  string                `json:"message"`
	Children []models.ChildProfile `json:"children"`
}

package domain

import "go.mongodb.org/mongo-driver/bson/primitive"

// NewIdentity issues a fresh identity. Identities are 24 character hex
// encoded ObjectIDs regardless of which store persists them.
func NewIdentity() string {
	return primitive.NewObjectID().Hex()
}

// ValidIdentity reports whether id has the identity shape.
func ValidIdentity(id string) bool {
	if len(id) != 24 {
		return false
	}
	_, err := primitive.ObjectIDFromHex(id)
	return err == nil
}

package shared

import "strings"

const (
	usersPathSegmentConstant           = "users"
	organizationsPathSegmentConstant   = "orgs"
	ownerTypeFieldNameConstant         = "owner_type"
	ownerTypeUnsupportedReasonConstant = "must be user or org"
)

// OwnerType distinguishes user accounts from organizations when listing provider repositories.
type OwnerType string

// Supported owner types.
const (
	OwnerTypeUser         OwnerType = "user"
	OwnerTypeOrganization OwnerType = "org"
)

// ParseOwnerType normalizes textual owner type values. Empty input selects a user account.
func ParseOwnerType(raw string) (OwnerType, error) {
	normalizedValue := strings.ToLower(strings.TrimSpace(raw))
	switch OwnerType(normalizedValue) {
	case "", OwnerTypeUser:
		return OwnerTypeUser, nil
	case OwnerTypeOrganization, "organization":
		return OwnerTypeOrganization, nil
	default:
		return "", InvalidValueError{Field: ownerTypeFieldNameConstant, Value: raw, Reason: ownerTypeUnsupportedReasonConstant}
	}
}

// PathSegment resolves the REST API segment listing repositories for the owner type.
func (ownerType OwnerType) PathSegment() string {
	switch ownerType {
	case OwnerTypeOrganization:
		return organizationsPathSegmentConstant
	default:
		return usersPathSegmentConstant
	}
}

// String returns the owner type label.
func (ownerType OwnerType) String() string {
	return string(ownerType)
}

package models

import "strings"

// Document classifications.
const (
	ClassificationPublic       = "public"
	ClassificationInternal     = "internal"
	ClassificationConfidential = "confidential"
	ClassificationRestricted   = "restricted"
)

// AdminRole sees every document.
const AdminRole = "admin"

// CanAccess applies document classification rules to a user.
// Public and internal documents are visible to everyone. Confidential and
// restricted documents need a matching department or the admin role.
func CanAccess(user *UserContext, classification, department string) bool {
	switch strings.ToLower(classification) {
	case ClassificationPublic, ClassificationInternal, "":
		return true
	}
	if user == nil {
		return false
	}
	if strings.EqualFold(user.Role, AdminRole) {
		return true
	}
	return department != "" && strings.EqualFold(user.Department, department)
}

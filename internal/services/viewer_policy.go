package services

import "github.com/terraincognita07/actiontracker/internal/models"

// CanViewAllCenters covers the roles that review trackers across users and centers.
func CanViewAllCenters(user models.PublicUser) bool {
	return user.Role == models.RoleAdmin || user.Role == models.RoleHeadOfNIAT
}

// CanAccessTracker allows the owner and the cross-center roles.
func CanAccessTracker(user models.PublicUser, tracker models.DailyActionTracker) bool {
	return tracker.UserID == user.ID || CanViewAllCenters(user)
}

func CanViewCenter(user models.PublicUser, centerID string) bool {
	if CanViewAllCenters(user) {
		return true
	}
	return user.CenterID != nil && *user.CenterID == centerID
}

func CanActForUser(user models.PublicUser, userID uint) bool {
	return userID == user.ID || CanViewAllCenters(user)
}

package collab

import "github.com/google/uuid"

// Cursor palette shared by all instances. The mapping from user to color is a
// pure function of the user id, so the same user gets the same color across
// reconnects and across hub instances without coordination.
var userPalette = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4",
	"#FFEAA7", "#DDA0DD", "#98D8C8", "#F7DC6F",
}

// ColorForUser maps a user id onto the fixed palette.
func ColorForUser(userID uuid.UUID) string {
	var sum uint32
	for _, b := range userID[:4] {
		sum = sum<<8 | uint32(b)
	}
	return userPalette[sum%uint32(len(userPalette))]
}

package presence

// Redis key layout. Member and cursor keys carry a TTL so a crashed hub
// instance cannot leave permanent ghosts; the document set is repaired on
// the next join/leave.
func documentKey(documentID string) string {
	return "presence:doc:" + documentID
}

func memberKey(documentID, userID string) string {
	return "presence:member:" + documentID + ":" + userID
}

func cursorKey(documentID, userID string) string {
	return "presence:cursor:" + documentID + ":" + userID
}

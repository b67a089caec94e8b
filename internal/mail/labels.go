package mail

// Gmail system label ids. The full list is documented at
// https://developers.google.com/workspace/gmail/api/guides/labels
const (
	LabelInbox      = "INBOX"
	LabelSpam       = "SPAM"
	LabelTrash      = "TRASH"
	LabelUnread     = "UNREAD"
	LabelStarred    = "STARRED"
	LabelImportant  = "IMPORTANT"
	LabelSocial     = "CATEGORY_SOCIAL"
	LabelUpdates    = "CATEGORY_UPDATES"
	LabelPromotions = "CATEGORY_PROMOTIONS"
	LabelForums     = "CATEGORY_FORUMS"
	LabelPersonal   = "CATEGORY_PERSONAL"
)

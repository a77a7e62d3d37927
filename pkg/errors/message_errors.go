package errors

var (
	// Domain errors shared by the usecase and repository layers.
	ErrUserNotFound             = NotFound("user not found")
	ErrConversationNotFound     = NotFound("conversation not found")
	ErrMessageNotFound          = NotFound("message not found")
	ErrNotParticipant           = Forbidden("user is not a participant in this conversation")
	ErrSelfConversation         = InvalidArg("sender and receiver must be different users")
	ErrEmptyContent             = InvalidArg("message content cannot be empty")
	ErrInvalidUserId            = InvalidArg("user id must be a positive integer")
	ErrInvalidUserStatus        = InvalidArg("status must be one of online, offline, away, busy")
	ErrInvalidStatusTransition  = FailedPrecondition("message status can only move forward")
	ErrConversationPairConflict = AlreadyExists("conversation for this pair already exists")
)

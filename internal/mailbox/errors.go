package mailbox

import "errors"

// Domain errors for mailbox operations.
var (
	// ErrNoCredentials indicates the unit has no stored Gmail authorization.
	ErrNoCredentials = errors.New("unit has no mailbox credentials")
	// ErrAttachmentEmpty indicates an attachment body carried no data.
	ErrAttachmentEmpty = errors.New("attachment body is empty")
)

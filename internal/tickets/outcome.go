package tickets

// Path is the reconciliation branch taken for a ticket.
type Path string

const (
	PathNew          Path = "new"
	PathReassignment Path = "reassignment"
	PathUpgrade      Path = "upgrade"
	PathDetailUpdate Path = "detail_update"
)

// Outcome reports what one reconciliation did.
type Outcome struct {
	TicketNumber string
	Path         Path
	// Collision is set when the ticket's email belonged to another identity.
	Collision bool
	// Retried is set when a lost create race forced reclassification.
	Retried     bool
	SilverToken int
	GoldToken   int
	// Err is a KindUnavailable apperr when a collaborator failed.
	Err error
}

// Status is the short string returned to the webhook caller.
func (o Outcome) Status() string {
	switch {
	case o.Err != nil:
		return "failed"
	case o.Collision && o.Path == PathNew:
		return "email_already_used"
	default:
		return string(o.Path)
	}
}

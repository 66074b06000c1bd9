package blocks

import "time"

// NoticeDuration is how long a transient message stays visible.
const NoticeDuration = 3 * time.Second

// Notice is a self-dismissing inline message.
type Notice struct {
	Message string
	Expires time.Time
}

func newNotice(msg string, now time.Time) Notice {
	return Notice{Message: msg, Expires: now.Add(NoticeDuration)}
}

func (n Notice) Visible(now time.Time) bool {
	return n.Message != "" && now.Before(n.Expires)
}

package transport

// Latest subscribes a channel that always holds the most recent snapshot.
// Older undelivered snapshots are replaced, so a slow consumer sees the
// current state rather than a backlog. The channel starts out holding the
// current state. The returned function unsubscribes; the channel is never
// closed.
func (c *Controller) Latest() (<-chan Snapshot, func(), error) {
	ch := make(chan Snapshot, 1)

	unsubscribe, err := c.subscribe(func(s Snapshot) {
		// Observers run one at a time under the controller lock, so this
		// is the only sender.
		select {
		case ch <- s:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}, true)
	if err != nil {
		return nil, nil, err
	}

	return ch, unsubscribe, nil
}

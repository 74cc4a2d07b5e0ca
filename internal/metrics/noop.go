package metrics

// NoopCollector implements the Collector interface with no-op methods.
// Used when metrics collection is disabled.
type NoopCollector struct{}

func (n *NoopCollector) SessionOpened()                       {}
func (n *NoopCollector) SessionClosed()                       {}
func (n *NoopCollector) MessageReceived(sizeBytes int64)      {}
func (n *NoopCollector) MessageRejected(reason string)        {}
func (n *NoopCollector) CommandProcessed(command string)      {}
func (n *NoopCollector) DNSListHit(listType, listName string) {}
func (n *NoopCollector) EarlyTalker()                         {}
func (n *NoopCollector) TarpitDelay(seconds float64)          {}

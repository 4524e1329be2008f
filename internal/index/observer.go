package index

import "time"

// Observer receives pipeline measurements. Implementations must be safe for
// concurrent use.
type Observer interface {
	DocumentIndexed()
	DocumentRemoved()
	ExtractionFailed()
	QueueDepth(n int)
	QueueOverflow()
	RebuildFinished(status string, d time.Duration)
	IndexState(generation uint64, documents int)
}

type nopObserver struct{}

func (nopObserver) DocumentIndexed()                      {}
func (nopObserver) DocumentRemoved()                      {}
func (nopObserver) ExtractionFailed()                     {}
func (nopObserver) QueueDepth(int)                        {}
func (nopObserver) QueueOverflow()                        {}
func (nopObserver) RebuildFinished(string, time.Duration) {}
func (nopObserver) IndexState(uint64, int)                {}
